package models

import (
	"time"

	"github.com/google/uuid"
)

// Bounds of a single rating, and therefore of the running mean
const (
	MinRating = 1
	MaxRating = 5
)

// MateProfile is the bookable side of a MATE user.
// Rating and RatingCount are only ever changed by folding in one rating at a time.
type MateProfile struct {
	UserID      uuid.UUID `json:"userId" db:"user_id"`
	Bio         string    `json:"bio" db:"bio"`
	HourlyRate  float64   `json:"hourlyRate" db:"hourly_rate"`
	IsAvailable bool      `json:"isAvailable" db:"is_available"`
	Rating      float64   `json:"rating" db:"rating"`
	RatingCount int       `json:"ratingCount" db:"rating_count"`
	Version     int64     `json:"-" db:"version"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// FoldRating returns the mean and count after adding one rating
func FoldRating(mean float64, count int, rating int) (float64, int) {
	newCount := count + 1
	return (mean*float64(count) + float64(rating)) / float64(newCount), newCount
}

// UpsertMateProfileRequest is the wire shape for creating or updating a mate profile
type UpsertMateProfileRequest struct {
	Bio         string   `json:"bio" binding:"max=2000"`
	HourlyRate  *float64 `json:"hourlyRate" binding:"required,gte=0"`
	IsAvailable *bool    `json:"isAvailable" binding:"required"`
}

// MateProfileResponse wraps a mate profile
type MateProfileResponse struct {
	Message string       `json:"message,omitempty"`
	Profile *MateProfile `json:"profile"`
}
