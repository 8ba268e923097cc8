// Package metrics exposes the Prometheus counters and histograms the
// booking and scheduling surfaces are instrumented with.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
)

// BookingMetrics exposes counters/histograms for the Booking
// Coordinator and Intent Gateway.
type BookingMetrics struct {
	appointmentsTotal  *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	transactionRetries *prometheus.CounterVec
	slotComputeLatency *prometheus.HistogramVec
	outboxLag          prometheus.Gauge
}

// NewBookingMetrics registers and returns the metric set. A nil
// Registerer registers against prometheus.DefaultRegisterer.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbc",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Total appointments mutated by the Booking Coordinator",
		}, []string{"operation", "status"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbc",
			Subsystem: "booking",
			Name:      "errors_total",
			Help:      "Total errors surfaced by the Booking Coordinator and Intent Gateway",
		}, []string{"code", "class"}),
		transactionRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbc",
			Subsystem: "booking",
			Name:      "transaction_retries_total",
			Help:      "Total serialization failure/deadlock retries",
		}, []string{"outcome"}),
		slotComputeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sbc",
			Subsystem: "slotengine",
			Name:      "compute_latency_seconds",
			Help:      "Latency of Slot Engine Compute calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"surface"}),
		outboxLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sbc",
			Subsystem: "events",
			Name:      "outbox_pending",
			Help:      "Number of undelivered outbox rows as of the last poll",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.appointmentsTotal, m.errorsTotal, m.transactionRetries, m.slotComputeLatency, m.outboxLag)
	return m
}

// ObserveAppointment records one Booking Coordinator operation
// (create/reschedule/cancel/transition) and its outcome status.
func (m *BookingMetrics) ObserveAppointment(operation, status string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveError records a surfaced bookingerr.Code, labeled by its
// reporting class.
func (m *BookingMetrics) ObserveError(code bookingerr.Code) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(string(code), string(bookingerr.ClassOf(code))).Inc()
}

// ObserveRetry records one transaction retry attempt's outcome
// ("retried" or "exhausted").
func (m *BookingMetrics) ObserveRetry(outcome string) {
	if m == nil {
		return
	}
	m.transactionRetries.WithLabelValues(outcome).Inc()
}

// ObserveSlotComputeLatency records how long one Slot Engine Compute
// call took, labeled by which surface called it ("staff" or "voice").
func (m *BookingMetrics) ObserveSlotComputeLatency(surface string, seconds float64) {
	if m == nil {
		return
	}
	m.slotComputeLatency.WithLabelValues(surface).Observe(seconds)
}

// SetOutboxPending reports the current undelivered-row count.
func (m *BookingMetrics) SetOutboxPending(n int) {
	if m == nil {
		return
	}
	m.outboxLag.Set(float64(n))
}
