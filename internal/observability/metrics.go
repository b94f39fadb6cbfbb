package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_alerts"

// Metrics holds the Prometheus collectors for the alert engine and weather ingestion.
type Metrics struct {
	EngineRuns           *prometheus.CounterVec // labels: result={ok,partial,failed,skipped}
	EngineRunDuration    prometheus.Histogram
	EngineRunInProgress  prometheus.Gauge
	UsersEvaluated       prometheus.Counter
	AlertsSent           *prometheus.CounterVec // labels: level
	NotificationFailures prometheus.Counter
	PersistenceFailures  prometheus.Counter
	DispatchesReconciled prometheus.Counter
	WeatherPolls         *prometheus.CounterVec // labels: outcome={success,error}
	AssessmentsRecorded  *prometheus.CounterVec // labels: level
	EventPublishFailures prometheus.Counter
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		EngineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_runs_total",
			Help:      h("Alert engine runs by result."),
		}, []string{"result"}),
		EngineRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_run_duration_seconds",
			Help:      h("Duration of a complete alert engine run."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		EngineRunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_run_in_progress",
			Help:      h("1 while an alert engine run holds the run lock."),
		}),
		UsersEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_evaluated_total",
			Help:      h("Users considered by the alert engine."),
		}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      h("Notifications delivered and recorded, by risk level."),
		}, []string{"level"}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      h("Notifications that failed to send."),
		}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      h("Dispatch bookkeeping writes that failed."),
		}),
		DispatchesReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_reconciled_total",
			Help:      h("Pending dispatches from interrupted runs recorded without resending."),
		}),
		WeatherPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_polls_total",
			Help:      h("Per-district weather fetches by outcome."),
		}, []string{"outcome"}),
		AssessmentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_recorded_total",
			Help:      h("District risk assessments stored, by level."),
		}, []string{"level"}),
		EventPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      h("Alert events that could not be published to a sink."),
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.EngineRuns,
		m.EngineRunDuration,
		m.EngineRunInProgress,
		m.UsersEvaluated,
		m.AlertsSent,
		m.NotificationFailures,
		m.PersistenceFailures,
		m.DispatchesReconciled,
		m.WeatherPolls,
		m.AssessmentsRecorded,
		m.EventPublishFailures,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
