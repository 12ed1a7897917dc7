package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeService handles payment gateway integration with Stripe Checkout
type StripeService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *client.API
}

// NewStripeService creates a new Stripe payment service.
// Every API call is bounded by cfg.Timeout.
func NewStripeService(cfg *config.PaymentConfig, logger *logrus.Logger) *StripeService {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	backendConfig := func() *stripe.BackendConfig {
		bc := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			LeveledLogger:     logger,
			MaxNetworkRetries: stripe.Int64(0),
		}
		if cfg.APIURL != "" {
			bc.URL = stripe.String(cfg.APIURL)
		}
		return bc
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig()),
	})

	return &StripeService{
		config: cfg,
		logger: logger,
		client: sc,
	}
}

// IsConfigured reports whether the Stripe credentials are present
func (s *StripeService) IsConfigured() bool {
	return s.config.SecretKey != "" && s.config.WebhookSecret != ""
}

// CreateCheckoutSession creates a hosted Stripe Checkout page for one booking.
// The amount is converted to minor units here and nowhere else.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error) {
	unitAmount := models.ToMinorUnits(req.Amount)

	s.logger.WithFields(logrus.Fields{
		"booking_id":  req.BookingID,
		"amount":      req.Amount,
		"unit_amount": unitAmount,
		"currency":    s.config.Currency,
	}).Info("Creating Stripe checkout session")

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.config.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(checkoutProductName(req.Activity)),
					},
					UnitAmount: stripe.Int64(unitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.BookingID.String()),
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingID, req.BookingID.String())
	params.AddMetadata(MetadataRenterID, req.RenterID.String())
	params.AddMetadata(MetadataMateID, req.MateID.String())

	session, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", req.BookingID).Error("Stripe checkout session creation failed")
		return nil, &Error{
			Kind:    KindInfrastructure,
			Code:    "PAYMENT_PROVIDER_ERROR",
			Message: "failed to create checkout session",
			Err:     err,
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"session_id": session.ID,
	}).Info("Stripe checkout session created")

	return &models.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// VerifyEvent authenticates a webhook delivery against the endpoint secret and
// reduces it to a CheckoutEvent
func (s *StripeService) VerifyEvent(payload []byte, signatureHeader string) (*models.CheckoutEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			s.logger.WithError(err).Warn("Rejected Stripe webhook with invalid signature")
			return nil, &Error{
				Kind:    KindInvalidSignature,
				Code:    "INVALID_SIGNATURE",
				Message: "webhook signature verification failed",
				Err:     err,
			}
		}
		return nil, malformedEventError("webhook payload could not be parsed", err)
	}

	if event.ID == "" || event.Type == "" {
		return nil, malformedEventError("webhook event is missing id or type", nil)
	}

	out := &models.CheckoutEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, malformedEventError("checkout event has no data object", nil)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, malformedEventError("checkout event data is not a session", err)
	}

	out.SessionID = session.ID
	out.Metadata = session.Metadata
	out.AmountTotal = session.AmountTotal
	out.Currency = string(session.Currency)
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func checkoutProductName(activity string) string {
	if activity == "" {
		return "Mate booking"
	}
	return fmt.Sprintf("Mate booking: %s", activity)
}
