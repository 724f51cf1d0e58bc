package scmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordGaugesAndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetGlobalInboxSize(42)
	m.SetIdleWorkers(3)
	m.ObserveSuperstepLatency("Synchronous", 12*time.Millisecond)
	m.IncMessagesSent("worker", 5)
	m.IncMessagesReceived("worker", 4)
	m.IncThrottleEvent("inbox_backlog")
	m.IncVertexPanic("signal")

	if got := testutil.ToFloat64(m.globalInboxSize); got != 42 {
		t.Errorf("globalInboxSize = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.idleWorkers); got != 3 {
		t.Errorf("idleWorkers = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.messagesSent.WithLabelValues("worker")); got != 5 {
		t.Errorf("messagesSent[worker] = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.messagesReceived.WithLabelValues("worker")); got != 4 {
		t.Errorf("messagesReceived[worker] = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.throttleEvents.WithLabelValues("inbox_backlog")); got != 1 {
		t.Errorf("throttleEvents[inbox_backlog] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.vertexPanics.WithLabelValues("signal")); got != 1 {
		t.Errorf("vertexPanics[signal] = %v, want 1", got)
	}
}

func TestMetricsDisabledSkipsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetEnabled(false)

	m.SetGlobalInboxSize(99)
	m.IncThrottleEvent("heartbeat_age")

	if m.Enabled() {
		t.Fatal("expected Enabled() to report false after SetEnabled(false)")
	}
	if got := testutil.ToFloat64(m.globalInboxSize); got != 0 {
		t.Errorf("globalInboxSize = %v, want 0 (disabled)", got)
	}
	if got := testutil.ToFloat64(m.throttleEvents.WithLabelValues("heartbeat_age")); got != 0 {
		t.Errorf("throttleEvents[heartbeat_age] = %v, want 0 (disabled)", got)
	}
}

func TestNewWithNilRegistryUsesDefault(t *testing.T) {
	m := New(nil)
	if m == nil {
		t.Fatal("expected non-nil Metrics")
	}
}
