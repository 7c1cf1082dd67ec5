// Package metrics exposes Prometheus collectors for the HTTP front end.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Training outcomes used as the "result" label.
const (
	ResultOK           = "ok"
	ResultInsufficient = "insufficient"
	ResultBusy         = "busy"
	ResultError        = "error"
)

// Metrics holds the application's collectors on a private registry.
type Metrics struct {
	ImagesAnalyzed   *prometheus.CounterVec
	AnalyzeDuration  prometheus.Histogram
	SamplesAdded     *prometheus.CounterVec
	TrainingRuns     *prometheus.CounterVec
	TrainingDuration prometheus.Histogram
	QuizSubmissions  *prometheus.CounterVec
	SessionsEvicted  prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance. activeSessions is sampled on scrape; it
// may be nil.
func New(activeSessions func() float64) *Metrics {
	m := &Metrics{
		ImagesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripecheck_images_analyzed_total",
			Help: "Images analyzed, by heuristic label",
		}, []string{"label"}),
		AnalyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ripecheck_analyze_duration_seconds",
			Help:    "Time to decode, scale and analyze one upload",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		SamplesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripecheck_training_samples_total",
			Help: "Labeled samples collected, by class",
		}, []string{"class"}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripecheck_training_runs_total",
			Help: "Training requests, by result",
		}, []string{"result"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ripecheck_training_duration_seconds",
			Help:    "Wall time of successful training runs",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		QuizSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripecheck_quiz_submissions_total",
			Help: "Graded quiz submissions, by score",
		}, []string{"score"}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripecheck_sessions_evicted_total",
			Help: "Sessions dropped after sitting idle",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ImagesAnalyzed,
		m.AnalyzeDuration,
		m.SamplesAdded,
		m.TrainingRuns,
		m.TrainingDuration,
		m.QuizSubmissions,
		m.SessionsEvicted,
	)
	if activeSessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "ripecheck_active_sessions",
			Help: "Training sessions currently held in memory",
		}, activeSessions))
	}

	return m
}

// ObserveTraining records one training request.
func (m *Metrics) ObserveTraining(result string, d time.Duration) {
	m.TrainingRuns.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.TrainingDuration.Observe(d.Seconds())
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
