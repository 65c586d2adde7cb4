package decider

import (
	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/types"
)

// testNode describes one node for test cluster construction.
type testNode struct {
	id    string
	attrs map[string]string
}

// newTestState builds a minimal cluster state for decider tests. Every
// shard belongs to the "logs" index, which is configured with the given
// replica count.
func newTestState(nodes []testNode, replicas int, shards ...types.ShardRouting) types.ClusterState {
	members := types.DiscoveryNodes{Nodes: make(map[string]types.DiscoveryNode, len(nodes))}
	for _, n := range nodes {
		members.Nodes[n.id] = types.DiscoveryNode{ID: n.id, Name: n.id, Attributes: n.attrs}
	}

	return types.ClusterState{
		ClusterName:  "test-cluster",
		Version:      1,
		Nodes:        members,
		RoutingTable: types.NewRoutingTable(shards),
		Metadata: types.Metadata{
			Indices: map[string]types.IndexMetadata{
				"logs": {Name: "logs", UUID: "uuid-logs", NumberOfShards: 1, NumberOfReplicas: replicas},
			},
		},
	}
}

func newTestAllocation(nodes []testNode, replicas int, shards ...types.ShardRouting) *allocation.RoutingAllocation {
	return allocation.NewRoutingAllocation(newTestState(nodes, replicas, shards...))
}

func logsShard(id int) types.ShardID {
	return types.ShardID{Index: "logs", ID: id}
}
