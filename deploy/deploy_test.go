package deploy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/engine"
)

// newLocalNodeCluster wires up a real engine.MessageBus and one
// engine.NodeActor per node, without any Worker or Coordinator, so
// LocalProvisioner.Provision can be exercised against the actual
// NodeReady handshake rather than a stand-in.
func newLocalNodeCluster(t *testing.T, n int) (NodeStarter, func()) {
	t.Helper()
	mapper := engine.NewHashMapper[int](n, 1)
	bus := engine.NewMessageBus[int, int](mapper)
	for i := 0; i < n; i++ {
		bus.RegisterNode(i, make(engine.Mailbox, 16))
	}
	bus.RegisterCoordinator(make(engine.Mailbox, 16))

	var mu sync.Mutex
	var cancels []context.CancelFunc

	start := func(ctx context.Context, nodeID int) (<-chan engine.NodeReady, error) {
		nodeCtx, cancel := context.WithCancel(ctx)
		mu.Lock()
		cancels = append(cancels, cancel)
		mu.Unlock()

		readyCh := make(chan engine.NodeReady, 1)
		node := engine.NewNodeActor[int, int](engine.NodeConfig[int, int]{
			ID:      nodeID,
			Bus:     bus,
			Workers: nil,
			ReadyCh: readyCh,
		})
		go node.Run(nodeCtx)
		return readyCh, nil
	}

	shutdown := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
	}
	return start, shutdown
}

func TestLocalProvisionerStartsNodesInOrder(t *testing.T) {
	start, shutdownNodes := newLocalNodeCluster(t, 3)
	defer shutdownNodes()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shutdown, err := (LocalProvisioner{}).Provision(ctx, Descriptor{NumberOfNodes: 3, ClusterType: "local"}, start)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	defer shutdown()
}

func TestLocalProvisionerRejectsZeroNodes(t *testing.T) {
	start := func(ctx context.Context, nodeID int) (<-chan engine.NodeReady, error) {
		t.Fatal("start should never be called for a zero-node descriptor")
		return nil, nil
	}

	_, err := (LocalProvisioner{}).Provision(context.Background(), Descriptor{NumberOfNodes: 0}, start)
	if err == nil {
		t.Fatal("expected an error for a zero-node descriptor")
	}
}

func TestLocalProvisionerRejectsNonLocalClusterType(t *testing.T) {
	start, shutdownNodes := newLocalNodeCluster(t, 1)
	defer shutdownNodes()

	_, err := (LocalProvisioner{}).Provision(context.Background(), Descriptor{NumberOfNodes: 1, ClusterType: "yarn"}, start)
	if err == nil {
		t.Fatal("expected an error for an unsupported clusterType")
	}
}

func TestLocalProvisionerFailsOnReadyTimeout(t *testing.T) {
	start := func(ctx context.Context, nodeID int) (<-chan engine.NodeReady, error) {
		// Never signals ready.
		return make(chan engine.NodeReady), nil
	}

	// ReadyTimeout is 10s; ctx cancellation fires first and exercises the
	// other timeout branch in Provision's select.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := (LocalProvisioner{}).Provision(ctx, Descriptor{NumberOfNodes: 1, ClusterType: "local"}, start)
	if err == nil {
		t.Fatal("expected an error when the node never becomes ready")
	}
}
