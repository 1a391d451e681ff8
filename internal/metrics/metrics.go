// Package metrics records per-row enrichment metrics and exports them in the
// Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/homology"
)

const namespace = "homology"

// Recorder owns a private registry so repeated runs in one process don't collide.
type Recorder struct {
	reg *prometheus.Registry

	rows          *prometheus.CounterVec
	failures      *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	homologs      prometheus.Counter
	lastRun       prometheus.Gauge
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),

		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed by status",
		}, []string{"status"}),

		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed homology lookups by failure kind",
		}, []string{"kind"}),

		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Homology lookup duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"status"}),

		homologs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "homologies_total",
			Help:      "Homologies reported by the service across all rows",
		}),

		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	r.reg.MustRegister(r.rows, r.failures, r.fetchDuration, r.homologs, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Observe records one finished row.
func (r *Recorder) Observe(p homology.Progress) {
	r.rows.WithLabelValues(string(p.Status)).Inc()
	switch p.Status {
	case homology.StatusOK:
		r.fetchDuration.WithLabelValues(string(p.Status)).Observe(p.Duration.Seconds())
		r.homologs.Add(float64(p.Result.Count))
	case homology.StatusFailed:
		r.fetchDuration.WithLabelValues(string(p.Status)).Observe(p.Duration.Seconds())
		kind := "unclassified"
		if p.Failure != nil {
			kind = string(p.Failure.Kind)
		}
		r.failures.WithLabelValues(kind).Inc()
	}
}

// Finish stamps the completion time.
func (r *Recorder) Finish(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
