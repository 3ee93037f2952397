package service

import (
	"context"
	"time"

	"github.com/haatos/simple-release/internal/release"
	"github.com/haatos/simple-release/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer, which records nothing.
type Metrics struct {
	releases *prometheus.CounterVec
	duration *prometheus.HistogramVec
	steps    *prometheus.CounterVec
	queued   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		releases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simplerelease",
			Name:      "releases_total",
			Help:      "Finished releases by repository and final status.",
		}, []string{"repository", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simplerelease",
			Name:      "release_duration_seconds",
			Help:      "Wall time of release pipeline runs.",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		}, []string{"repository"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simplerelease",
			Name:      "release_steps_total",
			Help:      "Pipeline step transitions by step and status.",
		}, []string{"step", "status"}),
		queued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "simplerelease",
			Name:      "queued_releases",
			Help:      "Releases waiting in project queues.",
		}),
	}
}

func (m *Metrics) StepReporter() release.Reporter {
	if m == nil {
		return release.NopReporter{}
	}
	return release.ReporterFunc(
		func(_ context.Context, step release.Step, status release.Status, _ string) {
			m.steps.WithLabelValues(step.String(), stepStatus(status)).Inc()
		},
	)
}

func (m *Metrics) ObserveRelease(repository string, status store.ReleaseStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(repository, string(status)).Inc()
	m.duration.WithLabelValues(repository).Observe(d.Seconds())
}

func (m *Metrics) Enqueued() {
	if m != nil {
		m.queued.Inc()
	}
}

func (m *Metrics) Dequeued() {
	if m != nil {
		m.queued.Dec()
	}
}

func stepStatus(status release.Status) string {
	if status == release.StatusPending {
		return "pending"
	}
	return string(status)
}
