package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const paymentEventColumns = `
	event_id, event_type, booking_id, session_id, outcome, amount_total, currency,
	error_message, ip_address, user_agent, received_at, processed_at`

// PaymentEventRepository handles the processed payment event log
type PaymentEventRepository struct {
	db     Querier
	logger *logrus.Logger
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db Querier, logger *logrus.Logger) *PaymentEventRepository {
	return &PaymentEventRepository{
		db:     db,
		logger: logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *PaymentEventRepository) WithTx(tx *sqlx.Tx) *PaymentEventRepository {
	return &PaymentEventRepository{db: tx, logger: r.logger}
}

// Record inserts the event unless one with the same event id already exists.
// Returns false for a duplicate delivery.
func (r *PaymentEventRepository) Record(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	if event == nil {
		return false, fmt.Errorf("payment event cannot be nil")
	}
	if event.EventID == "" {
		return false, fmt.Errorf("payment event id is required")
	}

	query := `
		INSERT INTO payment_events (
			event_id, event_type, booking_id, session_id, outcome,
			amount_total, currency, error_message,
			ip_address, user_agent, received_at, processed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12
		)
		ON CONFLICT (event_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		event.EventID, event.EventType, event.BookingID, event.SessionID, event.Outcome,
		event.AmountTotal, event.Currency, event.ErrorMessage,
		event.IPAddress, event.UserAgent, event.ReceivedAt, event.ProcessedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.EventID,
			"event_type": event.EventType,
		}).Error("Failed to record payment event")
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"outcome":    event.Outcome,
		"inserted":   rows == 1,
	}).Debug("Payment event recorded")

	return rows == 1, nil
}

// GetByEventID retrieves a processed event, returning nil when it was never seen
func (r *PaymentEventRepository) GetByEventID(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events WHERE event_id = $1`

	err := r.db.GetContext(ctx, &event, query, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment event: %w", err)
	}
	return &event, nil
}
