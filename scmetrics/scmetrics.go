// Package scmetrics provides Prometheus-compatible metrics collection for a
// running signal/collect Graph, grounded on the teacher's graph.PrometheusMetrics
// (gauges for in-flight concurrency/queue depth, a latency histogram, and
// labeled counters for retries/conflicts/backpressure), renamed to the
// message-conservation and throttling vocabulary of this engine.
package scmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus series for one signal-collect cluster. All
// series are namespaced "signalcollect_".
type Metrics struct {
	globalInboxSize prometheus.Gauge
	idleWorkers     prometheus.Gauge

	superstepLatency *prometheus.HistogramVec

	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	throttleEvents   *prometheus.CounterVec
	vertexPanics     *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// New creates and registers every Metrics series with registry. A nil
// registry falls back to prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.globalInboxSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcollect",
		Name:      "global_inbox_size",
		Help:      "Total messages sent minus total messages received across the whole cluster",
	})

	m.idleWorkers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcollect",
		Name:      "idle_workers",
		Help:      "Number of workers currently reporting isIdle",
	})

	m.superstepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signalcollect",
		Name:      "superstep_latency_ms",
		Help:      "Duration of one signalStep+collectStep round in Synchronous/OptimizedAsynchronous mode",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"mode"})

	m.messagesSent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcollect",
		Name:      "messages_sent_total",
		Help:      "Cumulative messages sent, by destination class",
	}, []string{"destination"}) // worker, node, coordinator, other

	m.messagesReceived = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcollect",
		Name:      "messages_received_total",
		Help:      "Cumulative non-bootstrap, non-heartbeat messages received",
	}, []string{"actor"}) // worker, node, coordinator

	m.throttleEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcollect",
		Name:      "throttle_events_total",
		Help:      "Heartbeats that found the throttle gate engaged, by reason",
	}, []string{"reason"}) // inbox_backlog, heartbeat_age

	m.vertexPanics = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcollect",
		Name:      "vertex_panics_total",
		Help:      "Vertex callback panics recovered by a worker's guardVertexCall, by phase",
	}, []string{"phase"}) // signal, collect, afterInitialization, beforeRemoval

	return m
}

// SetGlobalInboxSize records a fresh GlobalInboxSize reading.
func (m *Metrics) SetGlobalInboxSize(v int64) {
	if !m.enabled {
		return
	}
	m.globalInboxSize.Set(float64(v))
}

// SetIdleWorkers records the current count of idle workers.
func (m *Metrics) SetIdleWorkers(n int) {
	if !m.enabled {
		return
	}
	m.idleWorkers.Set(float64(n))
}

// ObserveSuperstepLatency records one superstep's wall-clock duration.
func (m *Metrics) ObserveSuperstepLatency(mode string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.superstepLatency.WithLabelValues(mode).Observe(float64(d.Milliseconds()))
}

// IncMessagesSent increments the sent counter for destination.
func (m *Metrics) IncMessagesSent(destination string, n uint64) {
	if !m.enabled {
		return
	}
	m.messagesSent.WithLabelValues(destination).Add(float64(n))
}

// IncMessagesReceived increments the received counter for actor.
func (m *Metrics) IncMessagesReceived(actor string, n uint64) {
	if !m.enabled {
		return
	}
	m.messagesReceived.WithLabelValues(actor).Add(float64(n))
}

// IncThrottleEvent records one heartbeat that found the gate engaged.
func (m *Metrics) IncThrottleEvent(reason string) {
	if !m.enabled {
		return
	}
	m.throttleEvents.WithLabelValues(reason).Inc()
}

// IncVertexPanic records one recovered vertex-callback panic.
func (m *Metrics) IncVertexPanic(phase string) {
	if !m.enabled {
		return
	}
	m.vertexPanics.WithLabelValues(phase).Inc()
}

// Enabled reports whether recording is currently active.
func (m *Metrics) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// SetEnabled toggles recording without tearing down registered series,
// mirroring the teacher's enabled flag used to cheaply disable metrics in
// tests.
func (m *Metrics) SetEnabled(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = v
}
