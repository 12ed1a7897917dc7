package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// AuthMiddleware validates the access token from the Authorization header or the session cookie
func AuthMiddleware(jwtService *jwt.Service, cookieName string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, code, message := extractToken(c, cookieName)
		if tokenString == "" {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
				"code": code,
			}).Warn("AUTH FAILED: no usable token")
			abortUnauthorized(c, "unauthorized", message, code)
			return
		}

		claims, err := jwtService.Validate(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "token_expired", "Access token has expired", "TOKEN_EXPIRED")
				return
			}
			logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("AUTH FAILED: invalid token")
			abortUnauthorized(c, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			return
		}

		role, err := models.ParseRole(claims.Role)
		if err != nil {
			logger.WithField("user_id", claims.UserID).WithField("role", claims.Role).Warn("AUTH FAILED: unknown role")
			abortUnauthorized(c, "invalid_token", "Token carries an unknown role", "UNKNOWN_ROLE")
			return
		}

		c.Set(UserContextKey, UserContext{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   role,
		})

		c.Next()
	}
}

// extractToken prefers the Authorization header; the cookie is only consulted when no header is sent
func extractToken(c *gin.Context, cookieName string) (token, code, message string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return "", "INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>"
		}
		return strings.TrimSpace(parts[1]), "", ""
	}

	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			return cookie, "", ""
		}
	}

	return "", "MISSING_AUTH", "Authorization header or session cookie is required"
}

func abortUnauthorized(c *gin.Context, errKey, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errKey,
		"message": message,
		"code":    code,
	})
}

// RequireRole creates a middleware that checks if user has one of the given roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User context not found. Auth middleware may not be applied.",
				"code":    "MISSING_USER_CONTEXT",
			})
			return
		}

		for _, role := range roles {
			if userCtx.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}

	return userCtx, true
}

// MustGetUserContext retrieves the user context or panics (use only after AuthMiddleware)
func MustGetUserContext(c *gin.Context) UserContext {
	userCtx, exists := GetUserContext(c)
	if !exists {
		panic("user context not found - ensure AuthMiddleware is applied")
	}
	return userCtx
}
