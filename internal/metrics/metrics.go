package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the booking backend
type Metrics struct {
	// HTTP requests by method, route and status code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route
	HTTPRequestDuration *prometheus.HistogramVec

	// Booking creation attempts by result: created, conflict, not_available, provider_not_found, error
	BookingCreateTotal *prometheus.CounterVec

	// Applied lifecycle transitions by from and to status
	BookingTransitionsTotal *prometheus.CounterVec

	// Payment provider events by type and outcome
	PaymentEventsTotal *prometheus.CounterVec

	// Rating submissions by result
	RatingsTotal *prometheus.CounterVec

	// Transactions replayed after a serialization failure or stale write
	TxRetriesTotal prometheus.Counter
}

// New creates collectors registered on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates collectors registered on reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingCreateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_create_total",
				Help: "Total number of booking creation attempts",
			},
			[]string{"result"},
		),
		BookingTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_transitions_total",
				Help: "Total number of applied booking status transitions",
			},
			[]string{"from", "to"},
		),
		PaymentEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_events_total",
				Help: "Total number of payment provider events received",
			},
			[]string{"type", "outcome"},
		),
		RatingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratings_total",
				Help: "Total number of rating submissions",
			},
			[]string{"result"},
		),
		TxRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "db_transaction_retries_total",
				Help: "Total number of replayed database transactions",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingCreateTotal,
		m.BookingTransitionsTotal,
		m.PaymentEventsTotal,
		m.RatingsTotal,
		m.TxRetriesTotal,
	)

	return m
}

// NewNop returns collectors registered nowhere, for tests and tools
func NewNop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
