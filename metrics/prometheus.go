package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Billing metrics
	BillsCreated     *prometheus.CounterVec
	BillsSkipped     *prometheus.CounterVec
	PaymentsVerified *prometheus.CounterVec

	// Occupancy metrics
	RoomCorrections prometheus.Counter
	OccupancyOps    *prometheus.CounterVec

	// Notifications
	NotificationsFailed prometheus.Counter
}

// NewMetrics creates and registers metrics with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pg_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pg_http_request_duration_seconds",
				Help:    "Duration of HTTP request processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		BillsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pg_bills_created_total",
				Help: "Bills created by type",
			},
			[]string{"type"},
		),

		BillsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pg_bills_skipped_total",
				Help: "Bill creations skipped because the period was already billed",
			},
			[]string{"type"},
		),

		PaymentsVerified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pg_payments_verified_total",
				Help: "Payment verification attempts by result",
			},
			[]string{"result"},
		),

		RoomCorrections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pg_room_corrections_total",
				Help: "Rooms corrected by the reconciliation pass",
			},
		),

		OccupancyOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pg_occupancy_operations_total",
				Help: "Assign/release operations by outcome",
			},
			[]string{"operation", "result"},
		),

		NotificationsFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pg_notifications_failed_total",
				Help: "Notifications that could not be delivered",
			},
		),
	}
}

// BillCreated records a created bill. Safe on a nil receiver.
func (m *Metrics) BillCreated(billType string) {
	if m == nil {
		return
	}
	m.BillsCreated.WithLabelValues(billType).Inc()
}

// BillSkipped records a skipped duplicate bill.
func (m *Metrics) BillSkipped(billType string) {
	if m == nil {
		return
	}
	m.BillsSkipped.WithLabelValues(billType).Inc()
}

// PaymentVerified records a verification result.
func (m *Metrics) PaymentVerified(result string) {
	if m == nil {
		return
	}
	m.PaymentsVerified.WithLabelValues(result).Inc()
}

// RoomsCorrected adds n reconciled rooms.
func (m *Metrics) RoomsCorrected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RoomCorrections.Add(float64(n))
}

// Occupancy records an assign/release outcome.
func (m *Metrics) Occupancy(operation, result string) {
	if m == nil {
		return
	}
	m.OccupancyOps.WithLabelValues(operation, result).Inc()
}

// NotificationFailed counts an undelivered notification.
func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
