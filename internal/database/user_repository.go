package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/models"
)

// UserRepository reads user identity records. Users are created and edited elsewhere.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// GetUserByID retrieves a user by ID, returning nil when it does not exist
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, role, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Role.Valid() {
		return nil, fmt.Errorf("user %s has %w: %q", user.ID, models.ErrUnknownRole, user.Role)
	}

	return &user, nil
}
