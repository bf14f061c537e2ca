// Package metrics exposes simulation counters and timings to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smsc"

// Metrics groups the collectors of one process. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	StageRuns        *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	PipelineRuns     *prometheus.CounterVec
	ForcingShrink    *prometheus.CounterVec
	SnapshotsWritten *prometheus.CounterVec
	ArchivedDays     *prometheus.CounterVec
	ActivePipelines  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		StageRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_runs_total",
				Help:      "Stages finished, by pipeline and outcome.",
			},
			[]string{"pipeline", "outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of a stage from preparation to verdict.",
				Buckets:   prometheus.ExponentialBuckets(30, 2, 10),
			},
			[]string{"pipeline"},
		),
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Pipelines finished, by status.",
			},
			[]string{"pipeline", "status"},
		),
		ForcingShrink: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forcing_horizon_shrunk_days_total",
				Help:      "Days removed from the forecast horizon for lack of forcing.",
			},
			[]string{"pipeline"},
		),
		SnapshotsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_written_total",
				Help:      "Merged single-instant output files, by domain.",
			},
			[]string{"pipeline", "domain"},
		),
		ArchivedDays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archived_days_total",
				Help:      "Dated output directories mirrored to external destinations.",
			},
			[]string{"pipeline"},
		),
		ActivePipelines: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_pipelines",
				Help:      "Pipelines currently running.",
			},
		),
	}
}

func (m *Metrics) ObserveStage(pipeline, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageRuns.WithLabelValues(pipeline, outcome).Inc()
	m.StageDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (m *Metrics) ObservePipeline(pipeline, status string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(pipeline, status).Inc()
}

func (m *Metrics) AddShrunkDays(pipeline string, days int) {
	if m == nil || days <= 0 {
		return
	}
	m.ForcingShrink.WithLabelValues(pipeline).Add(float64(days))
}

func (m *Metrics) AddSnapshots(pipeline, domain string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SnapshotsWritten.WithLabelValues(pipeline, domain).Add(float64(n))
}

func (m *Metrics) AddArchivedDays(pipeline string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ArchivedDays.WithLabelValues(pipeline).Add(float64(n))
}

func (m *Metrics) PipelineStarted() {
	if m != nil {
		m.ActivePipelines.Inc()
	}
}

func (m *Metrics) PipelineFinished() {
	if m != nil {
		m.ActivePipelines.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for a node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
