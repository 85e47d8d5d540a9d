package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmrl/documind/internal/core/domain"
)

// Job outcomes recorded by the classification worker.
const (
	OutcomeClassified = "classified"
	OutcomeMissing    = "record_missing"
	OutcomeTemporary  = "temporary"
	OutcomeFailed     = "failed"
)

// WorkerMetrics tracks phase-two classification jobs consumed from the queue.
type WorkerMetrics struct {
	registry *prometheus.Registry
	pipeline *PipelineMetrics

	jobs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	queueLag *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &WorkerMetrics{
		registry: registry,
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "worker", Name: "classification_jobs_total",
			Help: "Deferred classification jobs by outcome.",
		}, []string{"service", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "worker", Name: "classification_job_duration_seconds",
			Help:    "Deferred classification job duration in seconds by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "worker", Name: "classification_jobs_in_flight",
			Help:        "Deferred classification jobs currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		queueLag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "worker", Name: "queue_lag_seconds",
			Help:    "Delay between a stored processing record and its classification start.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"service"}),
	}
	registry.MustRegister(m.jobs, m.duration, m.inFlight, m.queueLag)
	m.pipeline = newPipelineMetrics(registry, service)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) Pipeline() *PipelineMetrics {
	return m.pipeline
}

func (m *WorkerMetrics) StartJob() {
	m.inFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.inFlight.Dec()
	outcome := JobOutcome(err)
	m.jobs.WithLabelValues(service, outcome).Inc()
	m.duration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

// JobOutcome buckets a job error by domain kind.
func JobOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeClassified
	case domain.IsKind(err, domain.ErrNotFound):
		return OutcomeMissing
	case domain.IsKind(err, domain.ErrTemporary):
		return OutcomeTemporary
	default:
		return OutcomeFailed
	}
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
