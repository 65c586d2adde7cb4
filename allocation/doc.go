// Package allocation implements the allocation engine: the per-pass routing
// context handed to deciders, the all-must-agree decider aggregation, and
// the service that applies started/failed shard batches and reroute passes
// to produce new immutable cluster states.
//
// # Allocation passes
//
// Every computation follows the same shape: a mutable RoutingAllocation
// context is built from the current immutable cluster state, deciders and
// the node chooser mutate the context's RoutingNodes view, and the net
// effect is captured into a new routing table before the context is
// discarded. The input state is never modified.
//
// # Decider contract
//
// Deciders are purely advisory and side-effect free. They are evaluated in
// registration order; the first NO short-circuits the check for that
// shard/node pair. THROTTLE defers a placement without vetoing it, so
// throttled shards stay unassigned and are retried on the next pass.
package allocation
