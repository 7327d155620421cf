// Package metrics exposes Prometheus instrumentation for chat turns, graph
// nodes, model calls and emergency alerts. Every collector lives on a private
// registry so tests and multiple servers never collide on the default one.
//
// All methods are safe on a nil *Metrics, which disables instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/healthbot/core"
)

// Alert outcomes.
const (
	AlertSent       = "sent"
	AlertFailed     = "failed"
	AlertSuppressed = "suppressed"
)

// Metrics bundles the healthbot collectors.
type Metrics struct {
	registry *prometheus.Registry

	chatRequests *prometheus.CounterVec
	chatDuration prometheus.Histogram
	runsInFlight prometheus.Gauge
	nodeDuration *prometheus.HistogramVec
	llmCalls     *prometheus.CounterVec
	llmDuration  *prometheus.HistogramVec
	alerts       *prometheus.CounterVec
}

// New registers all collectors under namespace (default "healthbot").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "healthbot"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		chatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat turns by outcome.",
		}, []string{"status"}),
		chatDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_duration_seconds",
			Help:      "End-to-end chat turn latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		runsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Chat turns currently executing.",
		}),
		nodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Workflow node latency by node and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node", "status"}),
		llmCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model calls by model and outcome.",
		}, []string{"model", "status"}),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Model call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"model"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Emergency alerts by outcome.",
		}, []string{"status"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted marks a chat turn as in flight.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}

	m.runsInFlight.Inc()
}

// ObserveChat records a finished chat turn.
func (m *Metrics) ObserveChat(d time.Duration, err error) {
	if m == nil {
		return
	}

	m.runsInFlight.Dec()
	m.chatRequests.WithLabelValues(status(err)).Inc()
	m.chatDuration.Observe(d.Seconds())
}

// ObserveLLM records one model call.
func (m *Metrics) ObserveLLM(model string, d time.Duration, err error) {
	if m == nil {
		return
	}

	m.llmCalls.WithLabelValues(model, status(err)).Inc()
	m.llmDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveAlert records an alert outcome (AlertSent, AlertFailed, AlertSuppressed).
func (m *Metrics) ObserveAlert(outcome string) {
	if m == nil {
		return
	}

	m.alerts.WithLabelValues(outcome).Inc()
}

// NodeStarted implements graph.Observer.
func (m *Metrics) NodeStarted(*core.RunContext, string) {}

// NodeFinished implements graph.Observer.
func (m *Metrics) NodeFinished(_ *core.RunContext, node string, d time.Duration, err error) {
	if m == nil {
		return
	}

	m.nodeDuration.WithLabelValues(node, status(err)).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
