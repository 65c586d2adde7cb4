// Package master implements the elected master's cluster-state update
// pipeline.
//
// All routing-table mutation funnels through one Pipeline per master. The
// pipeline owns a single drain goroutine: submitted tasks queue per
// priority, drain cycles coalesce them into per-executor batches, and each
// batch produces at most one new published cluster state.
//
// # Batching
//
// A burst of shard reports arriving while a previous batch executes
// coalesces into one batch on the next drain cycle, so N reports cost one
// allocation pass and one publish instead of N. Batches are atomic: an
// executor or publish error rejects every task in the batch and the state
// is left exactly as it was.
//
// # Priorities
//
// Three priorities exist. Shard-started reports are urgent because they
// unblock recovery progress, shard failures are high, and routine reroute
// passes are normal. Within one priority, tasks apply in submission order.
package master
