// Package metrics exports graph execution metrics to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallnest/stategraph/graph"
)

const namespace = "stategraph"

// Collector is a graph.TraceHook that records run, node and edge metrics.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	collector := metrics.NewCollector(registry)
//	g, err := builder.Build(graph.WithHooks(collector))
type Collector struct {
	runs         *prometheus.CounterVec
	inflight     prometheus.Gauge
	nodes        *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	edges        *prometheus.CounterVec
}

var _ graph.TraceHook = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
// A nil reg uses the default Prometheus registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished graph runs by outcome",
			},
			[]string{"outcome"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inflight_runs",
				Help:      "Number of graph runs currently executing",
			},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of node executions by status",
			},
			[]string{"node", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Duration of node executions, merge and routing included",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"node"},
		),
		edges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edge_traversals_total",
				Help:      "Total number of edge traversals",
			},
			[]string{"from", "to"},
		),
	}

	reg.MustRegister(c.runs, c.inflight, c.nodes, c.nodeDuration, c.edges)
	return c
}

// OnEvent implements graph.TraceHook.
func (c *Collector) OnEvent(_ context.Context, span *graph.TraceSpan) {
	switch span.Event {
	case graph.TraceEventGraphStart:
		c.inflight.Inc()
	case graph.TraceEventGraphEnd:
		c.inflight.Dec()
		c.runs.WithLabelValues(outcome(span.Error)).Inc()
	case graph.TraceEventNodeEnd:
		c.nodes.WithLabelValues(span.NodeName, "ok").Inc()
		c.nodeDuration.WithLabelValues(span.NodeName).Observe(span.Duration.Seconds())
	case graph.TraceEventNodeError:
		c.nodes.WithLabelValues(span.NodeName, "error").Inc()
		c.nodeDuration.WithLabelValues(span.NodeName).Observe(span.Duration.Seconds())
	case graph.TraceEventEdgeTraversal:
		c.edges.WithLabelValues(span.FromNode, span.ToNode).Inc()
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return graph.ErrorKind(err)
}
