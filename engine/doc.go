// Package engine implements the partitioned, actor-based runtime of a
// vertex-centric signal/collect graph processing system.
//
// A computation is modeled as a directed graph whose vertices carry state
// and whose edges produce signals. Vertices are sharded across Workers by a
// deterministic hash of their id; Workers are co-hosted on NodeActors; and a
// single Coordinator drives execution and detects global convergence.
//
// Concrete graph algorithms, vertex serialization, the status console and
// cluster provisioning are external collaborators that interact with this
// package only through Vertex, Edge, GraphEditor and BuilderConfig/
// ExecutionConfig.
package engine
