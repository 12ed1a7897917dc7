package models

import (
	"fmt"
	"strings"
)

// BookingStatus represents the lifecycle phase of a booking.
// Rejection is not a status: rejected bookings are deleted.
type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "PENDING"
	BookingStatusPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
)

// AllBookingStatuses lists every persisted status
var AllBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusPaymentPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// ActiveBookingStatuses are the statuses that occupy a mate's calendar
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusPaymentPending,
	BookingStatusConfirmed,
}

// validTransitions is the only place legal status changes are defined
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:        {BookingStatusPaymentPending},
	BookingStatusPaymentPending: {BookingStatusConfirmed, BookingStatusPending, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusCompleted},
	BookingStatusCompleted:      {},
	BookingStatusCancelled:      {},
}

// ParseBookingStatus validates a wire value
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid booking status %q", s)
	}
	return status, nil
}

// Valid reports whether s is a known status
func (s BookingStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsActive reports whether a booking in this status blocks its slot
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingStatusPending, BookingStatusPaymentPending, BookingStatusConfirmed:
		return true
	case BookingStatusCompleted, BookingStatusCancelled:
		return false
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether s -> next is a legal transition
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

// ActiveStatusStrings returns the active statuses as plain strings for query arguments
func ActiveStatusStrings() []string {
	out := make([]string, len(ActiveBookingStatuses))
	for i, s := range ActiveBookingStatuses {
		out[i] = string(s)
	}
	return out
}
