package engine

import (
	"context"
	"testing"
	"time"
)

func newTestWorker(t *testing.T) *Worker[int, int] {
	t.Helper()
	mapper := NewHashMapper[int](1, 1)
	bus := NewMessageBus[int, int](mapper)
	w := NewWorker[int, int](WorkerConfig[int, int]{ID: 0, Bus: bus})
	bus.RegisterWorker(0, w.Inbox())
	bus.RegisterNode(0, make(Mailbox, 16))
	bus.RegisterCoordinator(make(Mailbox, 16))
	return w
}

// TestWorkerStartTakesEffectWithoutAnIncomingMessage guards against the
// regression where Start()/Pause() flags set before any message arrives
// were never applied because handlePauseAndContinue only ran from the
// message-received branch of Run's select.
func TestWorkerStartTakesEffectWithoutAnIncomingMessage(t *testing.T) {
	w := newTestWorker(t)
	w.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("worker never left StatePaused after Start() with no incoming message")
		default:
		}
		if w.State() != StatePaused {
			return
		}
		time.Sleep(receiveTimeout)
	}
}

func TestWorkerPauseTakesEffectWithoutAnIncomingMessage(t *testing.T) {
	w := newTestWorker(t)
	w.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for w.State() == StatePaused {
		time.Sleep(receiveTimeout)
	}
	w.Pause()

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("worker never re-entered StatePaused after Pause() with no incoming message")
		default:
		}
		if w.State() == StatePaused {
			return
		}
		time.Sleep(receiveTimeout)
	}
}

func TestWorkerAddVertexSchedulesSignalAndCollect(t *testing.T) {
	w := newTestWorker(t)
	v := newTestVertex(1)
	if !w.AddVertex(v) {
		t.Fatal("AddVertex failed")
	}
	if w.store.toSignal.IsEmpty() {
		t.Fatal("expected new vertex scheduled for signal")
	}
	if w.store.toCollect.IsEmpty() {
		t.Fatal("expected new vertex scheduled for collect")
	}
}

func TestWorkerUndeliverableSignalInvokedOnMissingTarget(t *testing.T) {
	mapper := NewHashMapper[int](1, 1)
	bus := NewMessageBus[int, int](mapper)
	var invoked int
	w := NewWorker[int, int](WorkerConfig[int, int]{
		ID:  0,
		Bus: bus,
		Undeliverable: func(m SignalMessage[int, int]) {
			invoked++
		},
	})
	bus.RegisterWorker(0, w.Inbox())
	bus.RegisterNode(0, make(Mailbox, 16))
	bus.RegisterCoordinator(make(Mailbox, 16))

	w.collectVertex(99, []int{1, 2, 3}, false)
	if invoked != 3 {
		t.Fatalf("undeliverable handler invoked %d times, want 3 (one per buffered signal)", invoked)
	}
}

func TestWorkerSignalStepRespectsThreshold(t *testing.T) {
	w := newTestWorker(t)
	w.signalThreshold = 0.5
	v := newTestVertex(1)
	v.wantsSignal = false // ScoreSignal() returns 0, below threshold
	w.store.Put(v)
	w.store.toSignal.Add(1)

	w.SignalStep()
	if w.Counters.SignalOperationsExecuted.Load() != 0 {
		t.Fatal("signal below threshold should not have executed")
	}
}

func TestGuardVertexCallRecoversPanic(t *testing.T) {
	w := newTestWorker(t)
	ok := w.guardVertexCall(1, "signal", func() {
		panic("boom")
	})
	if ok {
		t.Fatal("expected guardVertexCall to report failure after a panic")
	}
}
