package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// MateProfileManager reads and edits a mate's own profile
type MateProfileManager interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.MateProfile, error)
	Upsert(ctx context.Context, userID uuid.UUID, req *models.UpsertMateProfileRequest) (*models.MateProfile, error)
}

// MateProfileHandler handles mate profile HTTP requests
type MateProfileHandler struct {
	profiles MateProfileManager
	logger   *logrus.Logger
}

// NewMateProfileHandler creates a new mate profile handler
func NewMateProfileHandler(profiles MateProfileManager, logger *logrus.Logger) *MateProfileHandler {
	return &MateProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// GetProfile handles GET /api/v1/mate-profile
func (h *MateProfileHandler) GetProfile(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userCtx.UserID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MateProfileResponse{Profile: profile})
}

// UpsertProfile handles POST /api/v1/mate-profile
func (h *MateProfileHandler) UpsertProfile(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.UpsertMateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	profile, err := h.profiles.Upsert(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MateProfileResponse{
		Message: "Profile saved",
		Profile: profile,
	})
}
