package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/models"
)

// ConflictDetector decides whether a candidate slot overlaps any active booking of a mate.
// It never writes.
type ConflictDetector struct {
	bookings *database.BookingRepository
	profiles *database.MateProfileRepository
}

// NewConflictDetector creates a new ConflictDetector
func NewConflictDetector(bookings *database.BookingRepository, profiles *database.MateProfileRepository) *ConflictDetector {
	return &ConflictDetector{
		bookings: bookings,
		profiles: profiles,
	}
}

// WithTx returns a detector that reads through tx, so the check sees the same snapshot
// and locks as the insert that follows it
func (d *ConflictDetector) WithTx(tx *sqlx.Tx) *ConflictDetector {
	return &ConflictDetector{
		bookings: d.bookings.WithTx(tx),
		profiles: d.profiles.WithTx(tx),
	}
}

// HasConflict reports whether [start, end) on date overlaps an active booking of mateID.
// Touching slots do not conflict.
func (d *ConflictDetector) HasConflict(ctx context.Context, mateID uuid.UUID, date models.Date, start, end models.TimeOfDay) (bool, error) {
	iv, err := models.NewInterval(date, start, end)
	if err != nil {
		return false, validationError("INVALID_INTERVAL", err.Error())
	}

	profile, err := d.profiles.GetByUserID(ctx, mateID)
	if err != nil {
		return false, infrastructureError("failed to load mate profile", err)
	}
	if profile == nil {
		return false, ErrProviderNotFound
	}

	return d.overlaps(ctx, mateID, iv)
}

// overlaps assumes the mate has already been resolved
func (d *ConflictDetector) overlaps(ctx context.Context, mateID uuid.UUID, iv models.Interval) (bool, error) {
	conflict, err := d.bookings.HasActiveOverlap(ctx, mateID, iv.Date, iv.Start, iv.End)
	if err != nil {
		return false, infrastructureError("failed to check slot conflict", err)
	}
	return conflict, nil
}
