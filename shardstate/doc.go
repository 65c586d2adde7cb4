// Package shardstate implements the shard-state reporting protocol between
// data nodes and the elected master.
//
// A data node that observes a local shard transition calls
// Action.ShardStarted or Action.ShardFailed. The action resolves the
// current master, ships the report over the transport boundary, and
// delivers the outcome through a listener (shard-failed) or best-effort
// logging (shard-started).
//
// On the master, RegisterMasterHandlers wires incoming reports into the
// cluster-state task pipeline: started reports enqueue at urgent priority
// and are acknowledged unconditionally, failed reports enqueue at high
// priority and the acknowledgment carries the batch outcome.
//
// The action never retries on its own. A no-master condition or delivery
// failure is surfaced to the caller, which owns the retry policy.
package shardstate
