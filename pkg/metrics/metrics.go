// Package metrics exposes the process-scoped Prometheus instruments the
// planner, registry loader, and trace store report into.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects the counters, gauges, and histograms required by the
// capability router's observability surface.
type Registry struct {
	reg *prometheus.Registry

	ToolsLoaded     prometheus.Gauge
	ToolLoadErrors  prometheus.Counter
	PlannerBids     *prometheus.CounterVec   // capability, tool
	PlannerSelected *prometheus.CounterVec   // capability, tool
	PlannerFallback *prometheus.CounterVec   // capability
	ExecLatencyMs   *prometheus.HistogramVec // tool
	TraceCreated    prometheus.Counter
	TraceEvents     prometheus.Counter
}

// New creates a Registry with every required instrument registered against
// a fresh prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		ToolsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tools_loaded",
			Help: "Number of tools present in the current registry snapshot.",
		}),
		ToolLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tool_load_errors_total",
			Help: "Number of registry reload attempts that failed validation.",
		}),
		PlannerBids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_bids_total",
			Help: "Number of scored candidates produced per capability/tool.",
		}, []string{"capability", "tool"}),
		PlannerSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_selection_total",
			Help: "Number of times a tool was the winning selection for a capability.",
		}, []string{"capability", "tool"}),
		PlannerFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_fallbacks_total",
			Help: "Number of fallback transitions (failure or post-check) per capability.",
		}, []string{"capability"}),
		ExecLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planner_execution_latency_ms",
			Help:    "Observed executor latency in milliseconds, by tool.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3200, 6400},
		}, []string{"tool"}),
		TraceCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trace_created_total",
			Help: "Number of decision traces created.",
		}),
		TraceEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trace_events_total",
			Help: "Number of trace events recorded across all decisions.",
		}),
	}

	reg.MustRegister(
		m.ToolsLoaded,
		m.ToolLoadErrors,
		m.PlannerBids,
		m.PlannerSelected,
		m.PlannerFallback,
		m.ExecLatencyMs,
		m.TraceCreated,
		m.TraceEvents,
	)
	return m
}

// Handler returns the HTTP handler serving this registry's metrics in the
// Prometheus exposition format, for mounting at /metrics.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
