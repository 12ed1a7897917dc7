package services

import (
	"context"

	"github.com/rentamate/booking-backend/internal/models"
)

// PaymentGateway is the external payment collaborator.
// VerifyEvent must never return an event whose signature did not check out.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error)
	VerifyEvent(payload []byte, signatureHeader string) (*models.CheckoutEvent, error)
}

// Checkout metadata keys carried on every session
const (
	MetadataBookingID = "bookingId"
	MetadataRenterID  = "renterId"
	MetadataMateID    = "mateId"
)
