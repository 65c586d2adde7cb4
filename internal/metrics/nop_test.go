package metrics

import (
	"testing"

	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

func TestNopMetrics_ImplementsCollector(t *testing.T) {
	var collector types.MetricsCollector = NewNop()
	require.NotNil(t, collector)

	// All methods must be safe to call and discard their input.
	collector.RecordStateTransition(types.StateInit, types.StateJoining, 0)
	collector.RecordMasterChange("node-1")
	collector.RecordDecision("allocate", "YES")
	collector.RecordReroute("test", true, 0.1)
	collector.RecordUnassignedShards(3)
	collector.RecordBatch("shard-failed", 2, true)
	collector.RecordStatePublish(7, 0.01)
	collector.RecordShardReport("shard-started", "ok")
}
