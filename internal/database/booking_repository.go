package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/models"
)

const bookingColumns = `
	id, renter_id, mate_id, activity, booking_date, start_minute, end_minute,
	total_amount, status, checkout_session_id, created_at, updated_at`

// activeStatusList is the SQL literal list of statuses that occupy a calendar slot
var activeStatusList = func() string {
	quoted := make([]string, 0, len(models.ActiveBookingStatuses))
	for _, s := range models.ActiveBookingStatuses {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return strings.Join(quoted, ", ")
}()

// BookingRepository handles database operations for bookings table
type BookingRepository struct {
	db Querier
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db Querier) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *BookingRepository) WithTx(tx *sqlx.Tx) *BookingRepository {
	return &BookingRepository{db: tx}
}

// Create inserts a new booking
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, renter_id, mate_id, activity, booking_date,
			start_minute, end_minute, total_amount, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	err := r.db.QueryRowxContext(ctx, query,
		booking.ID, booking.RenterID, booking.MateID, booking.Activity, booking.Date,
		booking.StartTime, booking.EndTime, booking.TotalAmount, booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID, returning nil when it does not exist
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves and row-locks a booking; must be called inside a transaction
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *BookingRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListByRenter returns the renter's bookings, newest first, optionally filtered by status
func (r *BookingRepository) ListByRenter(ctx context.Context, renterID uuid.UUID, status *models.BookingStatus) ([]*models.Booking, error) {
	return r.list(ctx, "renter_id", renterID, status)
}

// ListByMate returns the mate's bookings, newest first, optionally filtered by status
func (r *BookingRepository) ListByMate(ctx context.Context, mateID uuid.UUID, status *models.BookingStatus) ([]*models.Booking, error) {
	return r.list(ctx, "mate_id", mateID, status)
}

func (r *BookingRepository) list(ctx context.Context, column string, userID uuid.UUID, status *models.BookingStatus) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + column + ` = $1`
	args := []interface{}{userID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// HasActiveOverlap reports whether the mate has an active booking on date overlapping [start, end).
// Touching intervals do not overlap.
func (r *BookingRepository) HasActiveOverlap(ctx context.Context, mateID uuid.UUID, date models.Date, start, end models.TimeOfDay) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE mate_id = $1
			AND booking_date = $2
			AND status IN (` + activeStatusList + `)
			AND start_minute < $3
			AND end_minute > $4
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, mateID, date, end, start); err != nil {
		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	return exists, nil
}

// UpdateStatus moves a booking from one status to another.
// Returns false when the booking is missing or no longer in the expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// SetCheckoutSession records the payment session created for a booking awaiting payment
func (r *BookingRepository) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error) {
	query := `
		UPDATE bookings
		SET checkout_session_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, sessionID, id, models.BookingStatusPaymentPending)
	if err != nil {
		return false, fmt.Errorf("failed to set checkout session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// Delete hard-deletes a booking. Returns false when it did not exist.
func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// ListElapsedConfirmed returns confirmed bookings whose slot ended at or before now.
// now is compared as wall-clock time in loc.
func (r *BookingRepository) ListElapsedConfirmed(ctx context.Context, now time.Time, loc *time.Location, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1
		AND booking_date + end_minute * INTERVAL '1 minute' <= $2::timestamp
		ORDER BY booking_date, end_minute
		LIMIT $3`

	wallClock := now.In(loc).Format("2006-01-02 15:04:05")

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, models.BookingStatusConfirmed, wallClock, limit); err != nil {
		return nil, fmt.Errorf("failed to list elapsed bookings: %w", err)
	}
	return ids, nil
}
