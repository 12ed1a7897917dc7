package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/internal/services"
	"github.com/rentamate/booking-backend/pkg/jwt"
	"github.com/rentamate/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) booking(args mock.Arguments) (*models.Booking, error) {
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Create(ctx context.Context, renterID uuid.UUID, in services.CreateBookingInput) (*models.Booking, error) {
	return m.booking(m.Called(ctx, renterID, in))
}

func (m *mockBookings) Accept(ctx context.Context, bookingID, mateID uuid.UUID) (*models.Booking, error) {
	return m.booking(m.Called(ctx, bookingID, mateID))
}

func (m *mockBookings) Reject(ctx context.Context, bookingID, mateID uuid.UUID) error {
	return m.Called(ctx, bookingID, mateID).Error(0)
}

func (m *mockBookings) CompleteByMate(ctx context.Context, bookingID, mateID uuid.UUID) (*models.Booking, error) {
	return m.booking(m.Called(ctx, bookingID, mateID))
}

func (m *mockBookings) RecordRating(ctx context.Context, bookingID, renterID uuid.UUID, value float64) (*models.MateProfile, error) {
	args := m.Called(ctx, bookingID, renterID, value)
	if p := args.Get(0); p != nil {
		return p.(*models.MateProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) InitiatePayment(ctx context.Context, bookingID, renterID uuid.UUID) (*models.CheckoutSession, error) {
	args := m.Called(ctx, bookingID, renterID)
	if s := args.Get(0); s != nil {
		return s.(*models.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error) {
	return m.booking(m.Called(ctx, bookingID, userID))
}

func (m *mockBookings) List(ctx context.Context, actor services.Actor, status *models.BookingStatus) ([]*models.Booking, error) {
	args := m.Called(ctx, actor, status)
	if b := args.Get(0); b != nil {
		return b.([]*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) HandleEvent(ctx context.Context, payload []byte, signatureHeader string, meta services.RequestMeta) (models.PaymentEventOutcome, error) {
	args := m.Called(ctx, payload, signatureHeader, meta)
	return args.Get(0).(models.PaymentEventOutcome), args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Get(ctx context.Context, userID uuid.UUID) (*models.MateProfile, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.(*models.MateProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfiles) Upsert(ctx context.Context, userID uuid.UUID, req *models.UpsertMateProfileRequest) (*models.MateProfile, error) {
	args := m.Called(ctx, userID, req)
	if p := args.Get(0); p != nil {
		return p.(*models.MateProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPinger struct {
	err error
}

func (p mockPinger) PingContext(ctx context.Context) error { return p.err }

type testServer struct {
	router     *gin.Engine
	jwt        *jwt.Service
	bookings   *mockBookings
	reconciler *mockReconciler
	profiles   *mockProfiles
	metrics    *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithPinger(t, mockPinger{})
}

func newTestServerWithPinger(t *testing.T, pinger Pinger) *testServer {
	gin.SetMode(gin.TestMode)
	require.NoError(t, validator.RegisterWithGin())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	cfg := &config.Config{
		JWT: config.JWTConfig{CookieName: "token"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	s := &testServer{
		jwt:        jwt.NewService("handler-test-secret-0123456789", time.Hour),
		bookings:   &mockBookings{},
		reconciler: &mockReconciler{},
		profiles:   &mockProfiles{},
		metrics:    m,
	}

	s.router = NewRouter(RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		JWT:      s.jwt,
		Bookings: NewBookingHandler(s.bookings, logger),
		Profiles: NewMateProfileHandler(s.profiles, logger),
		Webhooks: NewWebhookHandler(s.reconciler, logger),
		Health:   NewHealthHandler(pinger),
	})

	return s
}

func (s *testServer) token(t *testing.T, userID uuid.UUID, role models.Role) string {
	token, err := s.jwt.GenerateAccessToken(userID, "user@example.com", string(role))
	require.NoError(t, err)
	return token
}

// do sends a request, authenticated when token is non-empty
func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleBooking(renterID, mateID uuid.UUID, status models.BookingStatus) *models.Booking {
	return &models.Booking{
		ID:          uuid.New(),
		RenterID:    renterID,
		MateID:      mateID,
		Activity:    "Tennis",
		Date:        models.MustDate("2025-06-01"),
		StartTime:   models.MustTimeOfDay("09:00"),
		EndTime:     models.MustTimeOfDay("11:00"),
		TotalAmount: 200,
		Status:      status,
	}
}
