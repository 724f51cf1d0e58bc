package engine

import (
	"sync"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/scmetrics"
)

// ThrottleGate implements the back-pressure protocol from SPEC_FULL.md
// §4.6: a worker refuses to emit further outgoing signals once either
// threshold is exceeded, until a subsequent heartbeat reports values back
// below both thresholds. Incoming deliveries and local compute are never
// suspended, so in-flight traffic keeps draining and the system cannot
// deadlock on its own back pressure.
type ThrottleGate struct {
	inboxThresholdPerWorker int64
	queueAgeThreshold       time.Duration
	numberOfWorkers         int
	metrics                 *scmetrics.Metrics

	mu      sync.Mutex
	allowed bool
}

// SetMetrics attaches a metrics sink the gate reports engagement events to.
// Optional; a nil sink (the default) disables reporting.
func (t *ThrottleGate) SetMetrics(m *scmetrics.Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
}

// NewThrottleGate builds a gate for a cluster of numberOfWorkers workers.
// A zero threshold disables that particular check (always considered
// within bounds).
func NewThrottleGate(inboxThresholdPerWorker int64, queueAgeThreshold time.Duration, numberOfWorkers int) *ThrottleGate {
	return &ThrottleGate{
		inboxThresholdPerWorker: inboxThresholdPerWorker,
		queueAgeThreshold:       queueAgeThreshold,
		numberOfWorkers:         numberOfWorkers,
		allowed:                 true,
	}
}

// Observe recomputes the gate state from a freshly received Heartbeat.
func (t *ThrottleGate) Observe(hb Heartbeat) {
	t.mu.Lock()
	defer t.mu.Unlock()

	perWorkerBacklog := hb.GlobalInboxSize / int64(max(t.numberOfWorkers, 1))
	heartbeatAge := time.Since(hb.Timestamp)

	overInbox := t.inboxThresholdPerWorker > 0 && perWorkerBacklog > t.inboxThresholdPerWorker
	overAge := t.queueAgeThreshold > 0 && heartbeatAge > t.queueAgeThreshold

	t.allowed = !(overInbox || overAge)
	if t.metrics != nil {
		if overInbox {
			t.metrics.IncThrottleEvent("inbox_backlog")
		}
		if overAge {
			t.metrics.IncThrottleEvent("heartbeat_age")
		}
	}
}

// Allowed reports whether outgoing signal sends are currently permitted.
func (t *ThrottleGate) Allowed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowed
}
