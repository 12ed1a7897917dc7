package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/middleware"
	"github.com/rentamate/booking-backend/internal/services"
	"github.com/rentamate/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var statusByKind = map[services.ErrorKind]int{
	services.KindValidation:       http.StatusBadRequest,
	services.KindUnauthorized:     http.StatusUnauthorized,
	services.KindForbidden:        http.StatusForbidden,
	services.KindNotFound:         http.StatusNotFound,
	services.KindInvalidState:     http.StatusConflict,
	services.KindSlotConflict:     http.StatusConflict,
	services.KindNotAvailable:     http.StatusConflict,
	services.KindInvalidRating:    http.StatusBadRequest,
	services.KindInvalidSignature: http.StatusBadRequest,
	services.KindMalformedEvent:   http.StatusBadRequest,
	services.KindInfrastructure:   http.StatusInternalServerError,
}

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	if status, ok := statusByKind[services.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeServiceError renders a classified error. Infrastructure details are logged, never returned.
func writeServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)

	var svcErr *services.Error
	if !errors.As(err, &svcErr) || status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   string(services.KindInfrastructure),
			Message: "An internal error occurred. Please try again.",
			Code:    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(status, ErrorResponse{
		Error:   string(svcErr.Kind),
		Message: svcErr.Message,
		Code:    svcErr.Code,
	})
}

// writeBindError renders a request body that failed to decode or validate
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(services.KindValidation),
		Message: "Invalid request body",
		Code:    "INVALID_REQUEST",
		Fields:  validator.Messages(err),
	})
}

// requireUser returns the authenticated user or writes a 401
func requireUser(c *gin.Context) (middleware.UserContext, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(services.KindUnauthorized),
			Message: "User context not found",
			Code:    "MISSING_USER_CONTEXT",
		})
	}
	return userCtx, ok
}

// pathID parses the :id route parameter or writes a 400
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(services.KindValidation),
			Message: "Invalid booking ID format",
			Code:    "INVALID_BOOKING_ID",
		})
		return uuid.Nil, false
	}
	return id, true
}
