package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records per-stage timings of document processing. It satisfies ports.PipelineObserver.
type PipelineMetrics struct {
	service string

	stageDuration   *prometheus.HistogramVec
	stageFailures   *prometheus.CounterVec
	classifications *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

func newPipelineMetrics(registry prometheus.Registerer, service string) *PipelineMetrics {
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service", "stage"},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Pipeline sub-step failures by stage.",
		},
		[]string{"service", "stage"},
	)
	classifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classification",
			Name:      "outcomes_total",
			Help:      "Classification outcomes by method and category.",
		},
		[]string{"service", "method", "category"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vendor",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per vendor operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	registry.MustRegister(stageDuration, stageFailures, classifications, breakerState)

	return &PipelineMetrics{
		service:         service,
		stageDuration:   stageDuration,
		stageFailures:   stageFailures,
		classifications: classifications,
		breakerState:    breakerState,
	}
}

func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(m.service, stage).Inc()
	}
}

func (m *PipelineMetrics) ObserveClassification(method, category string) {
	if method == "" {
		method = "unknown"
	}
	m.classifications.WithLabelValues(m.service, method, category).Inc()
}

// ObserveBreaker records a vendor breaker transition.
func (m *PipelineMetrics) ObserveBreaker(operation, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
