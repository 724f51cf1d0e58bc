package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/engine"
)

// NodeStarter starts node nodeID and returns a channel that receives its
// engine.NodeReady handshake once the node's actors are live. Provision
// calls this once per node index, in order.
type NodeStarter func(ctx context.Context, nodeID int) (<-chan engine.NodeReady, error)

// ShutdownFunc tears down every node a Provision call started.
type ShutdownFunc func()

// Provisioner starts the nodes described by a Descriptor. Implementations
// differ in where nodes run (in-process goroutines, remote hosts, a
// resource manager); none of that is visible to the caller, which only
// supplies start and receives back a single ShutdownFunc.
type Provisioner interface {
	Provision(ctx context.Context, d Descriptor, start NodeStarter) (ShutdownFunc, error)
}

// ReadyTimeout bounds how long Provision waits for one node's NodeReady
// handshake before failing the whole provisioning attempt.
const ReadyTimeout = 10 * time.Second

// LocalProvisioner provisions every node as a goroutine within the current
// process — the "in-goroutine cluster" deployment mode from SPEC_FULL.md
// §6. YARN- or SSH-backed provisioners implementing the same interface are
// out of scope (spec.md §1 Non-goals); this is the only Provisioner this
// module ships.
type LocalProvisioner struct{}

// Provision starts d.NumberOfNodes nodes strictly in order: node i+1 is not
// started until node i's NodeReady has been observed, giving deterministic
// start ordering even though every node shares one process.
func (LocalProvisioner) Provision(ctx context.Context, d Descriptor, start NodeStarter) (ShutdownFunc, error) {
	if d.NumberOfNodes <= 0 {
		return nil, fmt.Errorf("deploy: descriptor requires at least one node")
	}
	if d.ClusterType != "" && d.ClusterType != "local" {
		return nil, fmt.Errorf("deploy: LocalProvisioner cannot satisfy clusterType %q", d.ClusterType)
	}

	var started []int
	rollback := func() {
		// Nodes manage their own lifetime via ctx cancellation; Provision
		// only needs to stop waiting, not explicitly tear down partially
		// started nodes.
	}

	for i := 0; i < d.NumberOfNodes; i++ {
		ready, err := start(ctx, i)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("deploy: starting node %d: %w", i, err)
		}
		select {
		case r := <-ready:
			if r.NodeID != i {
				rollback()
				return nil, fmt.Errorf("deploy: node %d reported ready as node %d", i, r.NodeID)
			}
			started = append(started, i)
		case <-time.After(ReadyTimeout):
			rollback()
			return nil, fmt.Errorf("deploy: node %d did not become ready within %s", i, ReadyTimeout)
		case <-ctx.Done():
			rollback()
			return nil, ctx.Err()
		}
	}

	shutdown := func() {
		// The caller's NodeStarter closures close over the means to cancel
		// their own node; LocalProvisioner has nothing further to release.
		_ = started
	}
	return shutdown, nil
}
