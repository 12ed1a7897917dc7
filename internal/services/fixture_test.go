package services

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/lock"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	bookingCols = []string{
		"id", "renter_id", "mate_id", "activity", "booking_date", "start_minute", "end_minute",
		"total_amount", "status", "checkout_session_id", "created_at", "updated_at",
	}
	profileCols = []string{
		"user_id", "bio", "hourly_rate", "is_available", "rating", "rating_count", "version", "created_at", "updated_at",
	}
	paymentEventCols = []string{
		"event_id", "event_type", "booking_id", "session_id", "outcome", "amount_total", "currency",
		"error_message", "ip_address", "user_agent", "received_at", "processed_at",
	}
)

const (
	qLockBooking   = `SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`
	qGetBooking    = `SELECT (.+) FROM bookings WHERE id = \$1$`
	qLockProfile   = `SELECT (.+) FROM mate_profiles WHERE user_id = \$1 FOR UPDATE`
	qGetProfile    = `SELECT (.+) FROM mate_profiles WHERE user_id = \$1$`
	qOverlap       = `SELECT EXISTS`
	qInsertBooking = `INSERT INTO bookings`
	qUpdateStatus  = `UPDATE bookings\s+SET status`
	qSetSession    = `UPDATE bookings\s+SET checkout_session_id`
	qDeleteBooking = `DELETE FROM bookings`
	qUpdateRating  = `UPDATE mate_profiles\s+SET rating`
	qGetEvent      = `SELECT (.+) FROM payment_events WHERE event_id`
	qInsertEvent   = `INSERT INTO payment_events`
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*models.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) VerifyEvent(payload []byte, signatureHeader string) (*models.CheckoutEvent, error) {
	args := m.Called(payload, signatureHeader)
	if e := args.Get(0); e != nil {
		return e.(*models.CheckoutEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	mock       sqlmock.Sqlmock
	gateway    *mockGateway
	config     *config.Config
	metrics    *metrics.Metrics
	detector   *ConflictDetector
	ratings    *RatingService
	bookings   *BookingService
	reconciler *PaymentReconciler
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLocker(t, lock.NoopLocker{})
}

func newFixtureWithLocker(t *testing.T, locker lock.Locker) *fixture {
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := &database.PostgresDB{DB: sqlx.NewDb(sqlDB, "sqlmock")}
	logger := newTestLogger()
	m := metrics.NewNop()

	cfg := &config.Config{
		Payment: *newTestPaymentConfig(),
		Booking: config.BookingConfig{
			ExpiryPolicy: config.ExpiryPolicyCancel,
			Location:     time.UTC,
		},
	}

	runner := database.NewTxRunner(db, config.DefaultMaxTxRetries, logger)
	bookingRepo := database.NewBookingRepository(db)
	profileRepo := database.NewMateProfileRepository(db)
	eventRepo := database.NewPaymentEventRepository(db, logger)

	gateway := &mockGateway{}
	detector := NewConflictDetector(bookingRepo, profileRepo)
	ratings := NewRatingService(runner, bookingRepo, profileRepo, logger, m)
	bookings := NewBookingService(runner, bookingRepo, profileRepo, detector, gateway, ratings, cfg, logger, m)
	reconciler := NewPaymentReconciler(gateway, runner, eventRepo, bookings, locker, logger, m)

	return &fixture{
		mock:       sqlMock,
		gateway:    gateway,
		config:     cfg,
		metrics:    m,
		detector:   detector,
		ratings:    ratings,
		bookings:   bookings,
		reconciler: reconciler,
	}
}

// bookingRecord is a row of the bookings table for mocked queries
type bookingRecord struct {
	ID        uuid.UUID
	RenterID  uuid.UUID
	MateID    uuid.UUID
	Start     string
	End       string
	Amount    float64
	Status    models.BookingStatus
	SessionID *string
}

func newBookingRecord(status models.BookingStatus) *bookingRecord {
	return &bookingRecord{
		ID:       uuid.New(),
		RenterID: uuid.New(),
		MateID:   uuid.New(),
		Start:    "09:00",
		End:      "11:00",
		Amount:   200,
		Status:   status,
	}
}

func (b *bookingRecord) rows() *sqlmock.Rows {
	now := time.Now()
	var session driver.Value
	if b.SessionID != nil {
		session = *b.SessionID
	}
	return sqlmock.NewRows(bookingCols).AddRow(
		b.ID.String(), b.RenterID.String(), b.MateID.String(), "Tennis",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		int64(models.MustTimeOfDay(b.Start).Minutes()), int64(models.MustTimeOfDay(b.End).Minutes()),
		b.Amount, string(b.Status), session, now, now,
	)
}

func profileRows(userID uuid.UUID, rate float64, available bool, rating float64, count int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileCols).AddRow(
		userID.String(), "Weekend tennis partner", rate, available, rating, int64(count), int64(1), now, now,
	)
}

func emptyRows(cols []string) *sqlmock.Rows {
	return sqlmock.NewRows(cols)
}

func stringPtr(s string) *string {
	return &s
}
