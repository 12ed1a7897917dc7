package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// RatingService folds a renter's one-time rating into the mate's running mean and retires the booking.
// It is the only writer of mate_profiles.rating and rating_count.
type RatingService struct {
	tx       *database.TxRunner
	bookings *database.BookingRepository
	profiles *database.MateProfileRepository
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// NewRatingService creates a new RatingService
func NewRatingService(
	tx *database.TxRunner,
	bookings *database.BookingRepository,
	profiles *database.MateProfileRepository,
	logger *logrus.Logger,
	m *metrics.Metrics,
) *RatingService {
	return &RatingService{
		tx:       tx,
		bookings: bookings,
		profiles: profiles,
		logger:   logger,
		metrics:  m,
	}
}

// ValidateRating accepts only whole numbers from MinRating to MaxRating
func ValidateRating(value float64) (int, error) {
	if math.IsNaN(value) || math.Trunc(value) != value || value < models.MinRating || value > models.MaxRating {
		return 0, ErrRatingOutOfRange
	}
	return int(value), nil
}

// SubmitRating records a rating for a completed booking.
// Loading the booking, folding the mean, and deleting the booking commit together or not at all.
// Concurrent folds for one mate queue on the profile row lock. Under READ COMMITTED a waiter
// reads the row its rival committed, so it folds from the current count instead of aborting.
// A fold computed from a stale count is still rejected by the storage guard and replayed.
func (s *RatingService) SubmitRating(ctx context.Context, bookingID, renterID uuid.UUID, value float64) (*models.MateProfile, error) {
	rating, err := ValidateRating(value)
	if err != nil {
		s.observe(err)
		return nil, err
	}

	var updated *models.MateProfile
	err = s.tx.Run(ctx, database.ReadCommitted, func(tx *sqlx.Tx) error {
		profile, err := s.fold(ctx, tx, bookingID, renterID, rating)
		if err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		s.observe(err)
		return nil, infrastructureError("failed to record rating", err)
	}

	s.observe(nil)
	s.logger.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"mate_id":      updated.UserID,
		"rating":       rating,
		"new_mean":     updated.Rating,
		"rating_count": updated.RatingCount,
	}).Info("Rating recorded")

	return updated, nil
}

func (s *RatingService) fold(ctx context.Context, tx *sqlx.Tx, bookingID, renterID uuid.UUID, rating int) (*models.MateProfile, error) {
	bookings := s.bookings.WithTx(tx)
	profiles := s.profiles.WithTx(tx)

	booking, err := bookings.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, infrastructureError("failed to load booking", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.RenterID != renterID {
		return nil, forbiddenError("only the renter of this booking can rate it")
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, invalidStateError(fmt.Sprintf("booking must be %s to be rated, got %s", models.BookingStatusCompleted, booking.Status))
	}

	profile, err := profiles.GetByUserIDForUpdate(ctx, booking.MateID)
	if err != nil {
		return nil, infrastructureError("failed to load mate profile", err)
	}
	if profile == nil {
		return nil, ErrProviderNotFound
	}

	mean, count := models.FoldRating(profile.Rating, profile.RatingCount, rating)
	ok, err := profiles.UpdateRating(ctx, profile.UserID, mean, count, profile.RatingCount)
	if err != nil {
		return nil, infrastructureError("failed to update mate rating", err)
	}
	if !ok {
		return nil, fmt.Errorf("rating count for mate %s moved: %w", profile.UserID, database.ErrStaleWrite)
	}

	deleted, err := bookings.Delete(ctx, booking.ID)
	if err != nil {
		return nil, infrastructureError("failed to retire booking", err)
	}
	if !deleted {
		return nil, ErrBookingNotFound
	}

	profile.Rating = mean
	profile.RatingCount = count
	profile.Version++
	return profile, nil
}

func (s *RatingService) observe(err error) {
	result := "recorded"
	if err != nil {
		result = string(KindOf(err))
	}
	s.metrics.RatingsTotal.WithLabelValues(result).Inc()
}
