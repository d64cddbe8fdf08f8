// Package metrics exposes prometheus collectors for bed and note rule outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	bedValidations  *prometheus.CounterVec
	bedMutations    *prometheus.CounterVec
	noteEdits       *prometheus.CounterVec
	occupancyRate   prometheus.Gauge
	expiringNotes   prometheus.Gauge
	notesLocked     prometheus.Counter
	pushesSent      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bedValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ward_bed_validations_total",
				Help: "Bed assignment and transfer validations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		bedMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ward_bed_mutations_total",
				Help: "Committed bed mutations by operation",
			},
			[]string{"operation"},
		),
		noteEdits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ward_note_edit_attempts_total",
				Help: "Note edit attempts by outcome (allowed, denied, bypassed)",
			},
			[]string{"outcome"},
		),
		occupancyRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ward_occupancy_rate_percent",
			Help: "Hospital-wide bed occupancy rate from the last summary",
		}),
		expiringNotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ward_notes_expiring_soon",
			Help: "Notes whose edit window closes within two hours, as of the last sweep",
		}),
		notesLocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ward_notes_locked_total",
			Help: "Notes stamped as locked by the sweeper",
		}),
		pushesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ward_push_notifications_total",
				Help: "Web push deliveries by status",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ward_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
	}

	m.registry.MustRegister(
		m.bedValidations,
		m.bedMutations,
		m.noteEdits,
		m.occupancyRate,
		m.expiringNotes,
		m.notesLocked,
		m.pushesSent,
		m.requestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func outcome(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// RecordBedValidation counts one validator run.
func (m *Metrics) RecordBedValidation(operation string, valid bool) {
	m.bedValidations.WithLabelValues(operation, outcome(valid)).Inc()
}

// RecordBedMutation counts one committed bed change.
func (m *Metrics) RecordBedMutation(operation string) {
	m.bedMutations.WithLabelValues(operation).Inc()
}

// RecordNoteEdit counts one edit attempt.
func (m *Metrics) RecordNoteEdit(allowed, bypassed bool) {
	switch {
	case bypassed:
		m.noteEdits.WithLabelValues("bypassed").Inc()
	case allowed:
		m.noteEdits.WithLabelValues("allowed").Inc()
	default:
		m.noteEdits.WithLabelValues("denied").Inc()
	}
}

// SetOccupancyRate publishes the latest hospital-wide occupancy.
func (m *Metrics) SetOccupancyRate(rate int) {
	m.occupancyRate.Set(float64(rate))
}

// SetExpiringNotes publishes the size of the expiring-soon bucket.
func (m *Metrics) SetExpiringNotes(n int) {
	m.expiringNotes.Set(float64(n))
}

// AddNotesLocked counts notes stamped as locked.
func (m *Metrics) AddNotesLocked(n int64) {
	m.notesLocked.Add(float64(n))
}

// RecordPush counts one push delivery attempt.
func (m *Metrics) RecordPush(status string) {
	m.pushesSent.WithLabelValues(status).Inc()
}

// ObserveRequest records an HTTP request duration.
func (m *Metrics) ObserveRequest(method, route, statusCode string, seconds float64) {
	m.requestDuration.WithLabelValues(method, route, statusCode).Observe(seconds)
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
