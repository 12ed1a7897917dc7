package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// MateProfileService reads and edits the provider-facing part of a mate profile.
// Rating fields are owned by RatingService and never written here.
type MateProfileService struct {
	profiles *database.MateProfileRepository
	users    *database.UserRepository
	logger   *logrus.Logger
}

// NewMateProfileService creates a new mate profile service
func NewMateProfileService(profiles *database.MateProfileRepository, users *database.UserRepository, logger *logrus.Logger) *MateProfileService {
	return &MateProfileService{
		profiles: profiles,
		users:    users,
		logger:   logger,
	}
}

// Get returns the caller's profile
func (s *MateProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.MateProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, infrastructureError("failed to load mate profile", err)
	}
	if profile == nil {
		return nil, ErrProviderNotFound
	}
	return profile, nil
}

// Upsert creates the caller's profile or replaces its editable fields
func (s *MateProfileService) Upsert(ctx context.Context, userID uuid.UUID, req *models.UpsertMateProfileRequest) (*models.MateProfile, error) {
	if req.HourlyRate == nil || math.IsNaN(*req.HourlyRate) || math.IsInf(*req.HourlyRate, 0) || *req.HourlyRate < 0 {
		return nil, validationError("INVALID_HOURLY_RATE", "hourlyRate must be a non-negative number")
	}
	if req.IsAvailable == nil {
		return nil, validationError("INVALID_AVAILABILITY", "isAvailable is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, infrastructureError("failed to load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Role != models.RoleMate {
		return nil, forbiddenError("only mates can have a mate profile")
	}

	profile, err := s.profiles.Upsert(ctx, userID, req.Bio, models.RoundMoney(*req.HourlyRate), *req.IsAvailable)
	if err != nil {
		return nil, infrastructureError("failed to save mate profile", err)
	}

	s.logger.WithFields(logrus.Fields{
		"mate_id":      userID,
		"hourly_rate":  profile.HourlyRate,
		"is_available": profile.IsAvailable,
	}).Info("Mate profile saved")

	return profile, nil
}
