package sctransport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/engine"
)

func newTestBus(t *testing.T) *engine.MessageBus[int, int] {
	t.Helper()
	mapper := engine.NewHashMapper[int](1, 1)
	bus := engine.NewMessageBus[int, int](mapper)
	bus.RegisterWorker(0, make(engine.Mailbox, 4))
	bus.RegisterNode(0, make(engine.Mailbox, 4))
	bus.RegisterCoordinator(make(engine.Mailbox, 4))
	return bus
}

func TestLocalTransportDeliversSignal(t *testing.T) {
	bus := newTestBus(t)
	tr := NewLocal[int, int](bus)
	ctx := context.Background()

	if err := tr.SendSignal(ctx, engine.SignalMessage[int, int]{TargetID: 1, Payload: 7}); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	if got := bus.GlobalInboxSize(); got != 1 {
		t.Fatalf("GlobalInboxSize() = %d, want 1", got)
	}
}

func TestLocalTransportDeliversHeartbeatWithoutCountingAsSent(t *testing.T) {
	bus := newTestBus(t)
	tr := NewLocal[int, int](bus)
	ctx := context.Background()

	if err := tr.SendHeartbeat(ctx, engine.Heartbeat{GlobalInboxSize: 3}); err != nil {
		t.Fatalf("SendHeartbeat: %v", err)
	}
	if got := bus.Stats().SentToWorkers; got != 0 {
		t.Fatalf("heartbeat must not count as SentToWorkers, got %d", got)
	}
}

func TestLocalTransportClose(t *testing.T) {
	tr := NewLocal[int, int](newTestBus(t))
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRPCTransportRoundTripsSignalOverLoopback(t *testing.T) {
	bus := newTestBus(t)
	srv := NewServer[int, int](bus)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go ListenAndServe[int, int](lis, srv)

	client, err := DialRPC[int, int]("tcp", lis.Addr().String())
	if err != nil {
		t.Fatalf("DialRPC: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.SendSignal(ctx, engine.SignalMessage[int, int]{TargetID: 1, Payload: 5}); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	if err := client.SendWorkerStatus(ctx, engine.WorkerStatus{WorkerID: 0}); err != nil {
		t.Fatalf("SendWorkerStatus: %v", err)
	}
	if err := client.SendHeartbeat(ctx, engine.Heartbeat{GlobalInboxSize: 1}); err != nil {
		t.Fatalf("SendHeartbeat: %v", err)
	}

	if got := bus.GlobalInboxSize(); got != 2 {
		t.Fatalf("GlobalInboxSize() = %d, want 2 after one signal and one WorkerStatus", got)
	}
	if got := bus.Stats().SentToCoordinator; got != 1 {
		t.Fatalf("SentToCoordinator = %d, want 1 after one WorkerStatus", got)
	}
}

func TestRPCTransportCallFailsAfterClose(t *testing.T) {
	bus := newTestBus(t)
	srv := NewServer[int, int](bus)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go ListenAndServe[int, int](lis, srv)

	client, err := DialRPC[int, int]("tcp", lis.Addr().String())
	if err != nil {
		t.Fatalf("DialRPC: %v", err)
	}
	client.Close()

	ctx := context.Background()
	if err := client.SendSignal(ctx, engine.SignalMessage[int, int]{TargetID: 1, Payload: 1}); err == nil {
		t.Fatal("expected error calling through a closed client")
	}
}
