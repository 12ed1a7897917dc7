package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventOutcome records what reconciliation did with a provider event
type PaymentEventOutcome string

const (
	PaymentOutcomeApplied   PaymentEventOutcome = "applied"
	PaymentOutcomeIgnored   PaymentEventOutcome = "ignored"
	PaymentOutcomeObserved  PaymentEventOutcome = "observed"
	PaymentOutcomeUnapplied PaymentEventOutcome = "unapplied"

	// PaymentOutcomeDuplicate is reported for redeliveries and never stored
	PaymentOutcomeDuplicate PaymentEventOutcome = "duplicate"
)

// Payment provider event types handled by reconciliation
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutSessionExpired   = "checkout.session.expired"
)

// PaymentEvent is the immutable record of one processed provider event.
// EventID is unique, which is what makes redelivery a no-op.
type PaymentEvent struct {
	EventID      string              `json:"event_id" db:"event_id"`
	EventType    string              `json:"event_type" db:"event_type"`
	BookingID    *uuid.UUID          `json:"booking_id,omitempty" db:"booking_id"`
	SessionID    *string             `json:"session_id,omitempty" db:"session_id"`
	Outcome      PaymentEventOutcome `json:"outcome" db:"outcome"`
	AmountTotal  *int64              `json:"amount_total,omitempty" db:"amount_total"`
	Currency     *string             `json:"currency,omitempty" db:"currency"`
	ErrorMessage *string             `json:"error_message,omitempty" db:"error_message"`
	IPAddress    *string             `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    *string             `json:"user_agent,omitempty" db:"user_agent"`
	ReceivedAt   time.Time           `json:"received_at" db:"received_at"`
	ProcessedAt  *time.Time          `json:"processed_at,omitempty" db:"processed_at"`
}

// NewPaymentEvent creates a payment event record with required fields
func NewPaymentEvent(eventID, eventType string) *PaymentEvent {
	return &PaymentEvent{
		EventID:    eventID,
		EventType:  eventType,
		Outcome:    PaymentOutcomeIgnored,
		ReceivedAt: time.Now(),
	}
}

// SetBooking sets the booking the event refers to
func (pe *PaymentEvent) SetBooking(bookingID uuid.UUID) *PaymentEvent {
	pe.BookingID = &bookingID
	return pe
}

// SetSession sets the checkout session id
func (pe *PaymentEvent) SetSession(sessionID string) *PaymentEvent {
	if sessionID != "" {
		pe.SessionID = &sessionID
	}
	return pe
}

// SetAmount records the amount the provider reported, in minor units
func (pe *PaymentEvent) SetAmount(amountTotal int64, currency string) *PaymentEvent {
	pe.AmountTotal = &amountTotal
	if currency != "" {
		pe.Currency = &currency
	}
	return pe
}

// SetOutcome sets the reconciliation outcome
func (pe *PaymentEvent) SetOutcome(outcome PaymentEventOutcome) *PaymentEvent {
	pe.Outcome = outcome
	return pe
}

// SetError records why the event could not be applied
func (pe *PaymentEvent) SetError(message string) *PaymentEvent {
	pe.ErrorMessage = &message
	return pe
}

// SetMetadata sets request metadata
func (pe *PaymentEvent) SetMetadata(ip, userAgent string) *PaymentEvent {
	if ip != "" {
		pe.IPAddress = &ip
	}
	if userAgent != "" {
		pe.UserAgent = &userAgent
	}
	return pe
}

// MarkProcessed stamps the processing time
func (pe *PaymentEvent) MarkProcessed() *PaymentEvent {
	now := time.Now()
	pe.ProcessedAt = &now
	return pe
}

// CheckoutSession is the result of creating a hosted payment page
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutRequest carries everything the payment collaborator needs for one booking
type CheckoutRequest struct {
	BookingID  uuid.UUID
	RenterID   uuid.UUID
	MateID     uuid.UUID
	Activity   string
	Amount     float64
	SuccessURL string
	CancelURL  string
}

// CheckoutEvent is a verified provider event reduced to what reconciliation needs
type CheckoutEvent struct {
	ID          string
	Type        string
	SessionID   string
	Metadata    map[string]string
	AmountTotal int64
	Currency    string
}
