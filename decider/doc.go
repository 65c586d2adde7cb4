// Package decider provides built-in allocation decider implementations.
//
// Each decider encapsulates one independent placement constraint and is
// aggregated by allocation.Deciders with all-must-agree semantics. The
// package includes five built-in deciders:
//
//   - ClusterRebalance: Gates whether any rebalancing move is currently
//     allowed, based on cluster-wide shard activity
//   - Awareness: Spreads copies of one shard evenly across values of
//     configured node attributes (rack, zone), including forced values
//     for zones that are temporarily down
//   - SameNode: Forbids two copies of one shard on the same node
//   - Throttle: Defers allocations onto nodes already running too many
//     concurrent recoveries (returns THROTTLE, never NO)
//   - Filter: Enforces operator require/exclude node-attribute filters
//
// # Dynamic settings
//
// Deciders that take configuration read it from a settings.Settings store
// and register an update consumer, so operators can change the policy at
// runtime without restarting. An invalid value arriving through the
// live-update path is logged and replaced with the safe default; only the
// explicit parse functions return errors.
//
// Custom deciders can be implemented by satisfying the allocation.Decider
// interface, typically by embedding Base to inherit default-YES behavior.
package decider
