// Package metrics exposes Prometheus instrumentation for the processing
// pipeline. A nil *Metrics is valid and records nothing, so batch runs can
// skip registration entirely.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	EntriesProcessed prometheus.Counter
	ConsigneeFound   prometheus.Counter
	ConsigneeMissing prometheus.Counter
	RunDuration      prometheus.Histogram
}

// NewMetrics registers the collectors on the default registry. Call once per
// process.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consignee_runs_total",
			Help: "Total processing runs by terminal status",
		}, []string{"status"}),
		EntriesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consignee_entries_processed_total",
			Help: "Total archive entries processed",
		}),
		ConsigneeFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consignee_found_total",
			Help: "Entries whose consignee was extracted",
		}),
		ConsigneeMissing: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consignee_missing_total",
			Help: "Entries recorded as Not found",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consignee_run_duration_seconds",
			Help:    "Wall time from unpack to delivery",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEntry records one processed entry.
func (m *Metrics) ObserveEntry(found bool) {
	if m == nil {
		return
	}
	m.EntriesProcessed.Inc()
	if found {
		m.ConsigneeFound.Inc()
	} else {
		m.ConsigneeMissing.Inc()
	}
}

// ObserveRun records a run reaching a terminal status.
func (m *Metrics) ObserveRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
}
