package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/models"
)

const mateProfileColumns = `
	user_id, bio, hourly_rate, is_available, rating, rating_count, version, created_at, updated_at`

// MateProfileRepository handles database operations for mate_profiles table
type MateProfileRepository struct {
	db Querier
}

// NewMateProfileRepository creates a new MateProfileRepository
func NewMateProfileRepository(db Querier) *MateProfileRepository {
	return &MateProfileRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *MateProfileRepository) WithTx(tx *sqlx.Tx) *MateProfileRepository {
	return &MateProfileRepository{db: tx}
}

// GetByUserID retrieves a profile, returning nil when it does not exist
func (r *MateProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.MateProfile, error) {
	query := `SELECT ` + mateProfileColumns + ` FROM mate_profiles WHERE user_id = $1`
	return r.getOne(ctx, query, userID)
}

// GetByUserIDForUpdate retrieves and row-locks a profile; must be called inside a transaction.
// Holding this lock serializes booking creation and rating folds for one mate.
func (r *MateProfileRepository) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.MateProfile, error) {
	query := `SELECT ` + mateProfileColumns + ` FROM mate_profiles WHERE user_id = $1 FOR UPDATE`
	return r.getOne(ctx, query, userID)
}

func (r *MateProfileRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.MateProfile, error) {
	var profile models.MateProfile
	err := r.db.GetContext(ctx, &profile, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mate profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates or updates the editable fields of a profile.
// Rating fields are never written here.
func (r *MateProfileRepository) Upsert(ctx context.Context, userID uuid.UUID, bio string, hourlyRate float64, isAvailable bool) (*models.MateProfile, error) {
	query := `
		INSERT INTO mate_profiles (user_id, bio, hourly_rate, is_available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			bio = EXCLUDED.bio,
			hourly_rate = EXCLUDED.hourly_rate,
			is_available = EXCLUDED.is_available,
			updated_at = NOW()
		RETURNING ` + mateProfileColumns

	var profile models.MateProfile
	if err := r.db.QueryRowxContext(ctx, query, userID, bio, hourlyRate, isAvailable).StructScan(&profile); err != nil {
		return nil, fmt.Errorf("failed to upsert mate profile: %w", err)
	}
	return &profile, nil
}

// UpdateRating writes a folded mean and count. The write only applies if the stored
// count still equals expectedCount, so a fold computed from a stale read is rejected.
func (r *MateProfileRepository) UpdateRating(ctx context.Context, userID uuid.UUID, mean float64, count int, expectedCount int) (bool, error) {
	query := `
		UPDATE mate_profiles
		SET rating = $1, rating_count = $2, version = version + 1, updated_at = NOW()
		WHERE user_id = $3 AND rating_count = $4`

	result, err := r.db.ExecContext(ctx, query, mean, count, userID, expectedCount)
	if err != nil {
		return false, fmt.Errorf("failed to update mate rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}
