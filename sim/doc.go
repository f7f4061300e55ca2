// Package sim provides the core discrete-event engine of qnetsim, a hybrid
// classical/quantum network simulator.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - world.go: the World arena (zones, networks, nodes, channels) and its builder
//   - node.go: the closed set of node variants and their shared state
//   - routing.go: synchronous hop-by-hop classical packet delivery
//   - channel.go: lossy, noisy qubit transmission over quantum channels
//
// # Ownership
//
// The World owns every entity in append-only slices. Entities refer to one
// another by ZoneID, NetworkID, NodeID and ChannelID, never by pointer.
// Topology is fixed once Finalize returns; afterwards nodes only mutate their
// own runtime state (qubit memories, repeater slots, QKD keys, inboxes), each
// under its own mutex.
//
// # Events and Errors
//
// Every state transition is reported to the Observer as an Event whose Data
// map is a private copy. Failures are typed errors wrapping one sentinel each
// (see errors.go); qubit loss is an ordinary Transmission outcome.
//
// Sub-packages:
//   - sim/topology/: topology descriptions and Build
//   - sim/runner/: command scheduling and the run lifecycle
//   - sim/scenario/: scripted command files
//   - sim/metrics/: prometheus collector and run summary
//   - sim/trace/: packet and qubit journey recording
package sim
