// Package deploy describes and provisions a signal-collect cluster, per
// SPEC_FULL.md §6. A Descriptor is the deployment-time analogue of
// engine.BuilderConfig: where BuilderConfig configures one already-running
// process's Graph, Descriptor describes how many processes to start and
// where, handed to a Provisioner.
package deploy

import "time"

// Descriptor is the deployment descriptor: which algorithm to run, its
// parameters, and the cluster shape to provision it onto.
type Descriptor struct {
	Algorithm           string
	AlgorithmParameters map[string]string
	MemoryPerNode       string // e.g. "2g", informational for external provisioners
	NumberOfNodes       int
	CopyFiles           []string
	ClusterType         string // "local", "yarn", "ssh" — only "local" is implemented
}

// NodeHandle identifies one provisioned node. No Provisioner method in this
// package returns one; Provisioner.Provision returns only a ShutdownFunc.
type NodeHandle struct {
	NodeID    int
	Address   string // empty for in-process nodes
	StartedAt time.Time
}
