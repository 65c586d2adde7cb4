// Package metrics provides MetricsCollector implementations.
package metrics

import "github.com/arloliu/shardalloc/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// CoordinatorMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State, _ /* duration */ float64) {
	// No-op
}

// RecordMasterChange discards the master change metric.
func (n *NopMetrics) RecordMasterChange(_ /* newMaster */ string) {
	// No-op
}

// AllocationMetrics implementation

// RecordDecision discards the decision metric.
func (n *NopMetrics) RecordDecision(_ /* check */, _ /* outcome */ string) {
	// No-op
}

// RecordReroute discards the reroute metric.
func (n *NopMetrics) RecordReroute(_ /* reason */ string, _ /* changed */ bool, _ /* duration */ float64) {
	// No-op
}

// RecordUnassignedShards discards the unassigned shard gauge.
func (n *NopMetrics) RecordUnassignedShards(_ /* count */ int) {
	// No-op
}

// PipelineMetrics implementation

// RecordBatch discards the batch metric.
func (n *NopMetrics) RecordBatch(_ /* source */ string, _ /* size */ int, _ /* success */ bool) {
	// No-op
}

// RecordStatePublish discards the state publish metric.
func (n *NopMetrics) RecordStatePublish(_ /* version */ int64, _ /* duration */ float64) {
	// No-op
}

// ShardStateMetrics implementation

// RecordShardReport discards the shard report metric.
func (n *NopMetrics) RecordShardReport(_ /* kind */, _ /* outcome */ string) {
	// No-op
}
