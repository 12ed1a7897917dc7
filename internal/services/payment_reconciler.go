package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/lock"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// errDuplicateEvent aborts the reconciliation transaction when the event id was already recorded
var errDuplicateEvent = errors.New("payment event already processed")

// RequestMeta describes the webhook delivery for the audit record
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// PaymentReconciler applies verified payment provider events to booking state.
// The event id is recorded in the same transaction as the transition it caused, so a
// redelivered event can never apply twice.
type PaymentReconciler struct {
	gateway  PaymentGateway
	tx       *database.TxRunner
	events   *database.PaymentEventRepository
	bookings *BookingService
	locker   lock.Locker
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// NewPaymentReconciler creates a new PaymentReconciler
func NewPaymentReconciler(
	gateway PaymentGateway,
	tx *database.TxRunner,
	events *database.PaymentEventRepository,
	bookings *BookingService,
	locker lock.Locker,
	logger *logrus.Logger,
	m *metrics.Metrics,
) *PaymentReconciler {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &PaymentReconciler{
		gateway:  gateway,
		tx:       tx,
		events:   events,
		bookings: bookings,
		locker:   locker,
		logger:   logger,
		metrics:  m,
	}
}

// HandleEvent verifies and applies one webhook delivery.
// A nil error means acknowledge. InvalidSignature and MalformedEvent are rejections without
// side effects; any other error withholds the acknowledgment so the provider redelivers.
func (r *PaymentReconciler) HandleEvent(ctx context.Context, payload []byte, signatureHeader string, meta RequestMeta) (models.PaymentEventOutcome, error) {
	event, err := r.gateway.VerifyEvent(payload, signatureHeader)
	if err != nil {
		r.metrics.PaymentEventsTotal.WithLabelValues("unknown", string(KindOf(err))).Inc()
		return "", err
	}

	outcome, err := r.handleVerified(ctx, event, meta)
	label := string(outcome)
	if err != nil {
		label = string(KindOf(err))
	}
	r.metrics.PaymentEventsTotal.WithLabelValues(event.Type, label).Inc()
	return outcome, err
}

func (r *PaymentReconciler) handleVerified(ctx context.Context, event *models.CheckoutEvent, meta RequestMeta) (models.PaymentEventOutcome, error) {
	logger := r.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"session_id": event.SessionID,
	})

	lease, err := r.locker.Acquire(ctx, event.ID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			logger.Info("Payment event is already being processed, asking for redelivery")
		}
		return "", infrastructureError("failed to acquire event lock", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("Failed to release event lock")
		}
	}()

	seen, err := r.events.GetByEventID(ctx, event.ID)
	if err != nil {
		return "", infrastructureError("failed to look up payment event", err)
	}
	if seen != nil {
		logger.WithField("outcome", seen.Outcome).Info("Duplicate payment event acknowledged")
		return models.PaymentOutcomeDuplicate, nil
	}

	record := models.NewPaymentEvent(event.ID, event.Type).
		SetSession(event.SessionID).
		SetMetadata(meta.IPAddress, meta.UserAgent)
	if event.AmountTotal > 0 {
		record.SetAmount(event.AmountTotal, event.Currency)
	}

	var (
		outcome models.PaymentEventOutcome
		change  *transitionLog
	)
	err = r.tx.Run(ctx, database.ReadCommitted, func(tx *sqlx.Tx) error {
		var err error
		record.ErrorMessage = nil
		outcome, change, err = r.apply(ctx, tx, event, record)
		if err != nil {
			return err
		}

		record.SetOutcome(outcome).MarkProcessed()
		inserted, err := r.events.WithTx(tx).Record(ctx, record)
		if err != nil {
			return infrastructureError("failed to record payment event", err)
		}
		if !inserted {
			return errDuplicateEvent
		}
		return nil
	})
	if errors.Is(err, errDuplicateEvent) {
		logger.Info("Duplicate payment event acknowledged")
		return models.PaymentOutcomeDuplicate, nil
	}
	if err != nil {
		logger.WithError(err).Error("Failed to apply payment event, withholding acknowledgment")
		return "", infrastructureError("failed to apply payment event", err)
	}

	if change != nil {
		r.metrics.BookingTransitionsTotal.WithLabelValues(string(change.from), string(change.to)).Inc()
	}

	entry := logger.WithField("outcome", outcome)
	if record.BookingID != nil {
		entry = entry.WithField("booking_id", *record.BookingID)
	}
	if record.ErrorMessage != nil {
		entry = entry.WithField("reason", *record.ErrorMessage)
	}
	entry.Info("Payment event processed")

	return outcome, nil
}

type transitionLog struct {
	from models.BookingStatus
	to   models.BookingStatus
}

// apply performs the booking side of one event inside tx.
// Permanent business failures become an unapplied outcome so the event is still acknowledged.
func (r *PaymentReconciler) apply(ctx context.Context, tx *sqlx.Tx, event *models.CheckoutEvent, record *models.PaymentEvent) (models.PaymentEventOutcome, *transitionLog, error) {
	switch event.Type {
	case models.EventCheckoutSessionCompleted, models.EventCheckoutSessionExpired:
	default:
		return models.PaymentOutcomeIgnored, nil, nil
	}

	bookingID, err := bookingIDFromMetadata(event.Metadata)
	if err != nil {
		return "", nil, err
	}
	record.SetBooking(bookingID)

	var change *transitionLog
	if event.Type == models.EventCheckoutSessionCompleted {
		_, changed, err := r.bookings.confirmInTx(ctx, tx, bookingID)
		if err != nil {
			return unapplied(err, record)
		}
		if !changed {
			return models.PaymentOutcomeObserved, nil, nil
		}
		change = &transitionLog{from: models.BookingStatusPaymentPending, to: models.BookingStatusConfirmed}
		return models.PaymentOutcomeApplied, change, nil
	}

	booking, from, err := r.bookings.expireInTx(ctx, tx, bookingID, event.SessionID)
	if err != nil {
		return unapplied(err, record)
	}
	if from == "" {
		return models.PaymentOutcomeObserved, nil, nil
	}
	change = &transitionLog{from: from, to: booking.Status}
	return models.PaymentOutcomeApplied, change, nil
}

// unapplied keeps NotFound and InvalidState as acknowledged outcomes; redelivery cannot fix them
func unapplied(err error, record *models.PaymentEvent) (models.PaymentEventOutcome, *transitionLog, error) {
	switch KindOf(err) {
	case KindNotFound, KindInvalidState:
		record.SetError(err.Error())
		return models.PaymentOutcomeUnapplied, nil, nil
	default:
		return "", nil, err
	}
}

func bookingIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata[MetadataBookingID]
	if !ok || raw == "" {
		return uuid.Nil, malformedEventError("checkout session has no bookingId metadata", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, malformedEventError("bookingId metadata is not a valid id", err)
	}
	return id, nil
}
