// Package shardalloc provides a Go library for cluster shard allocation
// with NATS-based master election and shard-state reconciliation.
//
// Shardalloc decides where shard copies live. A chain of deciders votes
// YES, NO, or THROTTLE on every proposed placement, an elected master
// applies shard-state reports and allocation passes through a batching
// pipeline, and each resulting cluster state is published as an immutable,
// versioned snapshot that every node swaps in by reference.
//
// # Quick Start
//
// Basic usage with default settings:
//
//	import "github.com/arloliu/shardalloc"
//
//	cfg := shardalloc.DefaultConfig()
//	cfg.NodeID = "node-1"
//	cfg.NodeAttributes = map[string]string{"zone": "us-east-1a"}
//
//	coord, err := shardalloc.NewCoordinator(&cfg, natsConn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := coord.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Stop(context.Background())
//
// # Key Features
//
//   - Pluggable Deciders: same-node, throttle, filter, awareness, and
//     rebalance policies combined with NO > THROTTLE > YES aggregation
//   - Master-Based Updates: one elected node batches all routing changes,
//     so cluster states form a single versioned sequence
//   - Zone Awareness: copies of a shard spread across zones or racks with
//     forced-value support for not-yet-provisioned zones
//   - Dynamic Settings: allocation policies reload live without restarts
//   - Shard-State Reports: data nodes report started and failed copies
//     over NATS request/reply with explicit outcome callbacks
//
// # Architecture
//
// Nodes progress through a state machine:
//
//	INIT → JOINING → ELECTION → SYNCING → ACTIVE
//
// The master drains shard-state reports and reroute requests from
// per-priority queues, applies them in coalesced batches to the current
// cluster state, and publishes every changed state to a JetStream KV
// bucket. Followers watch the bucket and apply newer versions. Each
// published change triggers a follow-up reroute until the routing table
// converges.
//
// # Advanced Usage
//
// Custom decider chain with options:
//
//	import (
//	    "github.com/arloliu/shardalloc"
//	    "github.com/arloliu/shardalloc/allocation"
//	    "github.com/arloliu/shardalloc/decider"
//	)
//
//	deciders := allocation.NewDeciders(
//	    decider.NewSameNode(),
//	    decider.NewAwareness(settingsStore, logger),
//	)
//
//	hooks := &shardalloc.Hooks{
//	    OnClusterStateChanged: func(ctx context.Context, old, updated shardalloc.ClusterState) error {
//	        // React to routing changes
//	        return nil
//	    },
//	}
//
//	coord, err := shardalloc.NewCoordinator(&cfg, natsConn,
//	    shardalloc.WithDeciders(deciders),
//	    shardalloc.WithHooks(hooks),
//	)
//
// See the examples/ directory for complete working examples.
package shardalloc
