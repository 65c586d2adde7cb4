package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	CoordinatorMetrics
	AllocationMetrics
	PipelineMetrics
	ShardStateMetrics
}

// CoordinatorMetrics defines metrics for coordinator-level operations.
type CoordinatorMetrics interface {
	// RecordStateTransition records a coordinator state transition event.
	RecordStateTransition(from, to State, duration float64)

	// RecordMasterChange records a master change.
	RecordMasterChange(newMaster string)
}

// AllocationMetrics defines metrics for allocation-pass operations.
type AllocationMetrics interface {
	// RecordDecision records the aggregate outcome of one decider check.
	//
	// Parameters:
	//   - check: Check kind ("allocate", "remain", "rebalance")
	//   - outcome: Aggregate decision ("YES", "NO", "THROTTLE")
	RecordDecision(check, outcome string)

	// RecordReroute records a completed reroute pass.
	//
	// Parameters:
	//   - reason: Reroute reason string
	//   - changed: true if the pass changed the routing table
	//   - duration: Time taken in seconds
	RecordReroute(reason string, changed bool, duration float64)

	// RecordUnassignedShards sets the current unassigned shard count (gauge metric).
	RecordUnassignedShards(count int)
}

// PipelineMetrics defines metrics for the master-side batching pipeline.
type PipelineMetrics interface {
	// RecordBatch records one executed task batch.
	//
	// Parameters:
	//   - source: Batch source ("shard-failed", "shard-started", "reroute")
	//   - size: Number of tasks coalesced into the batch
	//   - success: true if the batch executed without error
	RecordBatch(source string, size int, success bool)

	// RecordStatePublish records a published cluster state.
	//
	// Parameters:
	//   - version: Version of the published state
	//   - duration: Publish latency in seconds
	RecordStatePublish(version int64, duration float64)
}

// ShardStateMetrics defines metrics for shard-state report traffic.
type ShardStateMetrics interface {
	// RecordShardReport records one shard-state report sent by this node.
	//
	// Parameters:
	//   - kind: Report kind ("shard-started", "shard-failed")
	//   - outcome: Delivery outcome ("ok", "no_master", "not_master", "error")
	RecordShardReport(kind, outcome string)
}
