package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const webhookBody = `{"id":"evt_1","type":"checkout.session.completed"}`

func (s *testServer) deliver(body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Stripe/1.0 (+https://stripe.com/docs/webhooks)")
	req.Header.Set("X-Forwarded-For", "54.187.174.169")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestStripeWebhook(t *testing.T) {
	outcomes := []models.PaymentEventOutcome{
		models.PaymentOutcomeApplied,
		models.PaymentOutcomeDuplicate,
		models.PaymentOutcomeIgnored,
		models.PaymentOutcomeObserved,
		models.PaymentOutcomeUnapplied,
	}
	for _, outcome := range outcomes {
		t.Run("Acknowledged "+string(outcome), func(t *testing.T) {
			s := newTestServer(t)
			s.reconciler.On("HandleEvent", mock.Anything, []byte(webhookBody), "t=1,v1=abc", services.RequestMeta{
				IPAddress: "54.187.174.169",
				UserAgent: "Stripe/1.0 (+https://stripe.com/docs/webhooks)",
			}).Return(outcome, nil).Once()

			w := s.deliver(webhookBody, "t=1,v1=abc")

			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"received":true`)
			s.reconciler.AssertExpectations(t)
		})
	}

	rejections := []struct {
		name   string
		err    error
		status int
	}{
		{"Bad signature", &services.Error{Kind: services.KindInvalidSignature, Code: "INVALID_SIGNATURE", Message: "bad"}, http.StatusBadRequest},
		{"Malformed", &services.Error{Kind: services.KindMalformedEvent, Code: "MALFORMED_EVENT", Message: "no booking id"}, http.StatusBadRequest},
		{"Storage failure", errors.New("deadlock"), http.StatusInternalServerError},
		{"Lock unavailable", &services.Error{Kind: services.KindInfrastructure, Code: "INTERNAL_ERROR", Message: "busy"}, http.StatusInternalServerError},
	}
	for _, tc := range rejections {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			s.reconciler.On("HandleEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(models.PaymentEventOutcome(""), tc.err).Once()

			w := s.deliver(webhookBody, "t=1,v1=abc")

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "received")
		})
	}

	t.Run("No auth required", func(t *testing.T) {
		s := newTestServer(t)
		s.reconciler.On("HandleEvent", mock.Anything, mock.Anything, "", mock.Anything).
			Return(models.PaymentEventOutcome(""), &services.Error{Kind: services.KindInvalidSignature, Message: "unsigned"}).Once()

		w := s.deliver(webhookBody, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Oversized body", func(t *testing.T) {
		s := newTestServer(t)
		w := s.deliver(strings.Repeat("x", maxWebhookBody+1), "t=1,v1=abc")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.reconciler.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMateProfileRoutes(t *testing.T) {
	mateID := uuid.New()

	t.Run("Get", func(t *testing.T) {
		s := newTestServer(t)
		s.profiles.On("Get", mock.Anything, mateID).
			Return(&models.MateProfile{UserID: mateID, HourlyRate: 250, Rating: 4.5, RatingCount: 2}, nil).Once()

		w := s.do("GET", "/api/v1/mate-profile", s.token(t, mateID, models.RoleMate), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"hourlyRate":250`)
	})

	t.Run("Upsert ignores rating fields", func(t *testing.T) {
		s := newTestServer(t)
		s.profiles.On("Upsert", mock.Anything, mateID, mock.MatchedBy(func(req *models.UpsertMateProfileRequest) bool {
			return *req.HourlyRate == 300 && *req.IsAvailable && req.Bio == "Chess coach"
		})).Return(&models.MateProfile{UserID: mateID, Bio: "Chess coach", HourlyRate: 300, IsAvailable: true}, nil).Once()

		w := s.do("POST", "/api/v1/mate-profile", s.token(t, mateID, models.RoleMate),
			`{"bio":"Chess coach","hourlyRate":300,"isAvailable":true,"rating":5,"ratingCount":999}`)

		assert.Equal(t, http.StatusOK, w.Code)
		s.profiles.AssertExpectations(t)
	})

	t.Run("Negative rate", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do("POST", "/api/v1/mate-profile", s.token(t, mateID, models.RoleMate), `{"hourlyRate":-5,"isAvailable":true}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Renter forbidden", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do("GET", "/api/v1/mate-profile", s.token(t, uuid.New(), models.RoleRenter), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHealth(t *testing.T) {
	w := newTestServer(t).do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = newTestServerWithPinger(t, mockPinger{err: errors.New("connection refused")}).do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do("GET", "/health", "", nil)

	w := s.do("GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/health",status_code="200"} 1`)
}
