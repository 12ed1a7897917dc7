package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking is a single-interval reservation of a mate's time by a renter.
// TotalAmount is fixed at creation from the mate's rate at that moment.
type Booking struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	RenterID          uuid.UUID     `json:"renterId" db:"renter_id"`
	MateID            uuid.UUID     `json:"mateId" db:"mate_id"`
	Activity          string        `json:"activity" db:"activity"`
	Date              Date          `json:"date" db:"booking_date"`
	StartTime         TimeOfDay     `json:"startTime" db:"start_minute"`
	EndTime           TimeOfDay     `json:"endTime" db:"end_minute"`
	TotalAmount       float64       `json:"totalAmount" db:"total_amount"`
	Status            BookingStatus `json:"status" db:"status"`
	CheckoutSessionID *string       `json:"-" db:"checkout_session_id"`
	CreatedAt         time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time     `json:"updatedAt" db:"updated_at"`
}

// Interval returns the booked slot
func (b *Booking) Interval() Interval {
	return Interval{Date: b.Date, Start: b.StartTime, End: b.EndTime}
}

// IsParticipant reports whether userID is the renter or the mate of this booking
func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.RenterID == userID || b.MateID == userID
}

// EndsAt returns the instant the booked slot ends in loc
func (b *Booking) EndsAt(loc *time.Location) time.Time {
	return b.Date.At(b.EndTime, loc)
}

// CreateBookingRequest is the wire shape for booking creation.
// mateId is accepted as an alias of providerId.
type CreateBookingRequest struct {
	ProviderID string `json:"providerId" binding:"required_without=MateID,omitempty,uuid"`
	MateID     string `json:"mateId" binding:"required_without=ProviderID,omitempty,uuid"`
	Activity   string `json:"activity" binding:"required,max=200"`
	Date       string `json:"date" binding:"required,isodate"`
	StartTime  string `json:"startTime" binding:"required,hhmm"`
	EndTime    string `json:"endTime" binding:"required,hhmm"`
}

// Provider returns whichever of providerId/mateId was supplied
func (r *CreateBookingRequest) Provider() string {
	if r.ProviderID != "" {
		return r.ProviderID
	}
	return r.MateID
}

// SubmitRatingRequest is the wire shape for a rating submission.
// Rating is decoded as a float so non-integers reach the service and fail as an invalid rating.
type SubmitRatingRequest struct {
	Rating *float64 `json:"rating" binding:"required"`
}

// BookingResponse wraps a single booking
type BookingResponse struct {
	Message string   `json:"message,omitempty"`
	Booking *Booking `json:"booking"`
}

// BookingListResponse wraps a list of bookings
type BookingListResponse struct {
	Bookings []*Booking `json:"bookings"`
}

// CheckoutResponse is returned when a payment session is created
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// RatingResponse is returned after a rating is recorded
type RatingResponse struct {
	Message     string  `json:"message"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"ratingCount"`
}
