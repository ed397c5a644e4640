package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	latency  *commandLatencyWindow

	Commands          *prometheus.CounterVec
	CommandLatency    prometheus.Histogram
	PhaseTransitions  *prometheus.CounterVec
	OpenTasks         prometheus.Gauge
	PersistenceErrors *prometheus.CounterVec
	MaintenanceRuns   prometheus.Counter
	PrunedTasks       prometheus.Counter
	ChatEvents        *prometheus.CounterVec
	StatusSubscribers prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		latency:  newCommandLatencyWindow(256),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands by name and outcome.",
		}, []string{"command", "outcome"}),
		CommandLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_ms",
			Help:      "Time spent handling one chat command in milliseconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		PhaseTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Automatic timer phase changes by the phase entered.",
		}, []string{"phase"}),
		OpenTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_tasks",
			Help:      "Number of incomplete tasks held in memory.",
		}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed state writes by store.",
		}, []string{"store"}),
		MaintenanceRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_runs_total",
			Help:      "Completed daily maintenance runs.",
		}),
		PrunedTasks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_tasks_total",
			Help:      "Tasks removed by daily maintenance.",
		}),
		ChatEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_events_total",
			Help:      "Chat transport events by type.",
		}, []string{"event"}),
		StatusSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status_ws_subscribers",
			Help:      "Open status websocket connections.",
		}),
	}
}

// ObserveCommand records one handled chat command.
func (m *Metrics) ObserveCommand(command, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	ms := float64(elapsed.Microseconds()) / 1000
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandLatency.Observe(ms)
	m.latency.Observe(command, ms)
	if outcome != "ok" {
		m.latency.ObserveOutcome(outcome)
	}
}

func (m *Metrics) SnapshotCommandLatency() CommandLatencySnapshot {
	return m.latency.Snapshot()
}

func (m *Metrics) ResetCommandLatency() {
	m.latency.Reset()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
