// Package sctransport carries SignalMessage, WorkerStatus, NodeStatus and
// Heartbeat traffic across node boundaries for a distributed deployment.
//
// The teacher's go.mod pulls in google.golang.org/grpc only indirectly
// (via an otel instrumentation package), with no .proto-generated stubs
// anywhere in the repo to ground a handwritten gRPC service on. Authoring
// gRPC stubs by hand without running protoc would not match how the
// teacher or any other repo in the corpus actually uses grpc, so this
// package grounds the same NodeTransport role on net/rpc+encoding/gob
// instead: a single Go-only, stdlib wire format, still swappable behind
// the NodeTransport interface the way grpc would have been.
//
// Local is the in-process transport used for single-node deployments and
// tests; RPCTransport is the distributed implementation. Both satisfy
// NodeTransport so a caller can pick either one without the rest of the
// engine knowing which.
package sctransport

import (
	"context"
	"fmt"
	"net"
	"net/rpc"

	"github.com/transcendent-ai-labs/signal-collect/engine"
)

// serviceName is the fixed net/rpc service name every Server registers
// under, so the generic instantiation's mangled type name (e.g.
// "Server[string,float64]") never leaks into the wire protocol.
const serviceName = "transport"

// Ack is the empty reply every Server method fills in; net/rpc requires a
// reply pointer even when there is nothing to return.
type Ack struct{}

// NodeTransport moves one node's traffic to or from a remote node. Every
// method is a fire-and-forget delivery into the receiving side's local
// MessageBus; the caller decides reply semantics (if any) at a higher
// layer, matching the Request.Reply convention in engine.
type NodeTransport[K comparable, V any] interface {
	SendSignal(ctx context.Context, msg engine.SignalMessage[K, V]) error
	SendWorkerStatus(ctx context.Context, status engine.WorkerStatus) error
	SendNodeStatus(ctx context.Context, status engine.NodeStatus) error
	SendHeartbeat(ctx context.Context, hb engine.Heartbeat) error
	Close() error
}

// Local delivers directly into an in-process MessageBus, skipping the
// wire entirely. It serves single-process deployments and tests that want
// to exercise the NodeTransport interface without opening a socket.
type Local[K comparable, V any] struct {
	bus *engine.MessageBus[K, V]
}

// NewLocal wraps bus as a NodeTransport.
func NewLocal[K comparable, V any](bus *engine.MessageBus[K, V]) *Local[K, V] {
	return &Local[K, V]{bus: bus}
}

func (l *Local[K, V]) SendSignal(_ context.Context, msg engine.SignalMessage[K, V]) error {
	l.bus.SendSignal(msg.Payload, msg.TargetID, msg.SourceID)
	return nil
}

func (l *Local[K, V]) SendWorkerStatus(_ context.Context, status engine.WorkerStatus) error {
	l.bus.SendToCoordinator(status)
	return nil
}

func (l *Local[K, V]) SendNodeStatus(_ context.Context, status engine.NodeStatus) error {
	l.bus.SendToCoordinator(status)
	return nil
}

func (l *Local[K, V]) SendHeartbeat(_ context.Context, hb engine.Heartbeat) error {
	l.bus.SendToWorkers(hb, false)
	return nil
}

func (l *Local[K, V]) Close() error { return nil }

// Server is the RPC-visible receiver a remote RPCTransport calls into. It
// forwards everything onto a local MessageBus exactly the way Local does;
// the two share delivery semantics and differ only in how the call
// arrives.
type Server[K comparable, V any] struct {
	bus *engine.MessageBus[K, V]
}

// NewServer builds a Server forwarding onto bus.
func NewServer[K comparable, V any](bus *engine.MessageBus[K, V]) *Server[K, V] {
	return &Server[K, V]{bus: bus}
}

func (s *Server[K, V]) Signal(msg engine.SignalMessage[K, V], ack *Ack) error {
	s.bus.SendSignal(msg.Payload, msg.TargetID, msg.SourceID)
	*ack = Ack{}
	return nil
}

func (s *Server[K, V]) WorkerStatus(status engine.WorkerStatus, ack *Ack) error {
	s.bus.SendToCoordinator(status)
	*ack = Ack{}
	return nil
}

func (s *Server[K, V]) NodeStatus(status engine.NodeStatus, ack *Ack) error {
	s.bus.SendToCoordinator(status)
	*ack = Ack{}
	return nil
}

func (s *Server[K, V]) Heartbeat(hb engine.Heartbeat, ack *Ack) error {
	s.bus.SendToWorkers(hb, false)
	*ack = Ack{}
	return nil
}

// ListenAndServe registers srv under serviceName and serves RPC
// connections accepted on lis until lis is closed or Accept otherwise
// fails, matching net/rpc's own ServeConn-per-connection model.
func ListenAndServe[K comparable, V any](lis net.Listener, srv *Server[K, V]) error {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		return fmt.Errorf("sctransport: register server: %w", err)
	}
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go rpcServer.ServeConn(conn)
	}
}

// RPCTransport is the distributed NodeTransport implementation: every
// method is a net/rpc call, gob-encoded, to a remote Server.
type RPCTransport[K comparable, V any] struct {
	client *rpc.Client
}

// DialRPC connects to a remote ListenAndServe endpoint at address over
// network (normally "tcp").
func DialRPC[K comparable, V any](network, address string) (*RPCTransport[K, V], error) {
	client, err := rpc.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("sctransport: dial %s %s: %w", network, address, err)
	}
	return &RPCTransport[K, V]{client: client}, nil
}

func (c *RPCTransport[K, V]) call(ctx context.Context, method string, args any) error {
	var ack Ack
	call := c.client.Go(method, args, &ack, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-call.Done:
		return res.Error
	}
}

func (c *RPCTransport[K, V]) SendSignal(ctx context.Context, msg engine.SignalMessage[K, V]) error {
	return c.call(ctx, serviceName+".Signal", msg)
}

func (c *RPCTransport[K, V]) SendWorkerStatus(ctx context.Context, status engine.WorkerStatus) error {
	return c.call(ctx, serviceName+".WorkerStatus", status)
}

func (c *RPCTransport[K, V]) SendNodeStatus(ctx context.Context, status engine.NodeStatus) error {
	return c.call(ctx, serviceName+".NodeStatus", status)
}

func (c *RPCTransport[K, V]) SendHeartbeat(ctx context.Context, hb engine.Heartbeat) error {
	return c.call(ctx, serviceName+".Heartbeat", hb)
}

func (c *RPCTransport[K, V]) Close() error {
	return c.client.Close()
}
