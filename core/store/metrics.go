package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks store activity as Prometheus collectors. A nil *Metrics is
// valid and records nothing, so the store runs unchanged without a registry.
type Metrics struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	documents     *prometheus.GaugeVec
}

// NewMetrics creates and registers store metrics with the provided registry.
// A nil registry disables metrics entirely.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "store",
				Name:      "queries_total",
				Help:      "Total number of query operations by collection, operation, and status",
			},
			[]string{"collection", "operation", "status"},
		),

		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "maktaba",
				Subsystem: "store",
				Name:      "query_duration_seconds",
				Help:      "Duration of query operations in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"collection", "operation"},
		),

		documents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "maktaba",
				Subsystem: "store",
				Name:      "documents",
				Help:      "Current number of documents held per collection",
			},
			[]string{"collection"},
		),
	}

	registry.MustRegister(
		m.queriesTotal,
		m.queryDuration,
		m.documents,
	)
	return m
}

// RecordQuery records one query operation with its outcome and duration.
func (m *Metrics) RecordQuery(collection, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(collection, operation, status).Inc()
	m.queryDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// SetDocuments updates the per-collection document gauge.
func (m *Metrics) SetDocuments(collection string, count int) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(collection).Set(float64(count))
}

// ForgetCollection drops the gauge series of a removed collection.
func (m *Metrics) ForgetCollection(collection string) {
	if m == nil {
		return
	}
	m.documents.DeleteLabelValues(collection)
}
