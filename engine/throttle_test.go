package engine

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/transcendent-ai-labs/signal-collect/scmetrics"
)

func TestThrottleGateAllowsUnderThreshold(t *testing.T) {
	g := NewThrottleGate(10, time.Second, 2)
	g.Observe(Heartbeat{Timestamp: time.Now(), GlobalInboxSize: 4})
	if !g.Allowed() {
		t.Fatal("expected gate to allow sends under both thresholds")
	}
}

func TestThrottleGateBlocksOverInboxThreshold(t *testing.T) {
	g := NewThrottleGate(10, 0, 2)
	// S6: inboxThresholdPerWorker=10, 2 workers -> per-worker backlog of
	// 11 trips the gate.
	g.Observe(Heartbeat{Timestamp: time.Now(), GlobalInboxSize: 22})
	if g.Allowed() {
		t.Fatal("expected gate to block once per-worker backlog exceeds threshold")
	}
}

func TestThrottleGateBlocksOverAgeThreshold(t *testing.T) {
	g := NewThrottleGate(0, 10*time.Millisecond, 2)
	g.Observe(Heartbeat{Timestamp: time.Now().Add(-time.Second), GlobalInboxSize: 0})
	if g.Allowed() {
		t.Fatal("expected gate to block once heartbeat age exceeds threshold")
	}
}

func TestThrottleGateRecoversOnceBelowThresholds(t *testing.T) {
	g := NewThrottleGate(10, 0, 2)
	g.Observe(Heartbeat{Timestamp: time.Now(), GlobalInboxSize: 1000})
	if g.Allowed() {
		t.Fatal("precondition: expected gate to be blocked")
	}
	g.Observe(Heartbeat{Timestamp: time.Now(), GlobalInboxSize: 0})
	if !g.Allowed() {
		t.Fatal("expected gate to reopen once backlog drains")
	}
}

func TestThrottleGateZeroThresholdDisablesCheck(t *testing.T) {
	g := NewThrottleGate(0, 0, 1)
	g.Observe(Heartbeat{Timestamp: time.Now().Add(-time.Hour), GlobalInboxSize: 1 << 30})
	if !g.Allowed() {
		t.Fatal("expected zero thresholds to disable both checks")
	}
}

func TestThrottleGateReportsEventsToMetrics(t *testing.T) {
	g := NewThrottleGate(10, time.Millisecond, 2)
	m := scmetrics.New(prometheus.NewRegistry())
	g.SetMetrics(m)

	// SetMetrics must not change the gate's own decision, only add
	// reporting alongside it.
	g.Observe(Heartbeat{Timestamp: time.Now().Add(-time.Second), GlobalInboxSize: 1000})
	if g.Allowed() {
		t.Fatal("expected gate to remain blocked with a metrics sink attached")
	}
	g.Observe(Heartbeat{Timestamp: time.Now(), GlobalInboxSize: 0})
	if !g.Allowed() {
		t.Fatal("expected gate to reopen with a metrics sink attached")
	}
}
