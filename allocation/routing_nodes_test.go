package allocation

import (
	"testing"

	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

func testState(nodeIDs []string, replicas int, shards ...types.ShardRouting) types.ClusterState {
	members := types.DiscoveryNodes{Nodes: make(map[string]types.DiscoveryNode, len(nodeIDs))}
	for _, id := range nodeIDs {
		members.Nodes[id] = types.DiscoveryNode{ID: id, Name: id}
	}

	return types.ClusterState{
		ClusterName:  "test-cluster",
		Version:      1,
		Nodes:        members,
		RoutingTable: types.NewRoutingTable(shards),
		Metadata: types.Metadata{
			Indices: map[string]types.IndexMetadata{
				"logs": {Name: "logs", UUID: "uuid-logs", NumberOfShards: 2, NumberOfReplicas: replicas},
			},
		},
	}
}

func shard(id int) types.ShardID {
	return types.ShardID{Index: "logs", ID: id}
}

func TestRoutingNodes_EmptyNodesAreCandidates(t *testing.T) {
	rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 0,
		types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
	))

	require.Equal(t, []string{"node-1", "node-2"}, rn.NodeIDs())
	require.Equal(t, 1, rn.NumShards("node-1"))
	require.Equal(t, 0, rn.NumShards("node-2"))
}

func TestRoutingNodes_Assign(t *testing.T) {
	rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 1,
		types.ShardRouting{Shard: shard(0), Primary: true, State: types.ShardUnassigned},
		types.ShardRouting{Shard: shard(0), State: types.ShardUnassigned},
	))

	rn.Assign(types.ShardRouting{Shard: shard(0), Primary: true}, "node-1")

	require.Len(t, rn.Unassigned(), 1)
	require.False(t, rn.Unassigned()[0].Primary)

	assigned := rn.Assigned("node-1")
	require.Len(t, assigned, 1)
	require.True(t, assigned[0].Primary)
	require.Equal(t, types.ShardInitializing, assigned[0].State)
	require.Equal(t, "node-1", assigned[0].CurrentNodeID)
}

func TestRoutingNodes_Start(t *testing.T) {
	t.Run("initializing copy starts", func(t *testing.T) {
		rn := NewRoutingNodes(testState([]string{"node-1"}, 0,
			types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardInitializing},
		))

		report := types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardInitializing}
		require.True(t, rn.Start(report))
		require.Equal(t, types.ShardStarted, rn.Assigned("node-1")[0].State)
	})

	t.Run("relocation completes onto the target", func(t *testing.T) {
		rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 0,
			types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", RelocatingNodeID: "node-2", State: types.ShardRelocating},
		))

		report := types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-2"}
		require.True(t, rn.Start(report))
		require.Empty(t, rn.Assigned("node-1"))

		moved := rn.Assigned("node-2")
		require.Len(t, moved, 1)
		require.Equal(t, types.ShardStarted, moved[0].State)
		require.Equal(t, "node-2", moved[0].CurrentNodeID)
		require.Empty(t, moved[0].RelocatingNodeID)
	})

	t.Run("unknown copy is ignored", func(t *testing.T) {
		rn := NewRoutingNodes(testState([]string{"node-1"}, 0,
			types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
		))

		report := types.ShardRouting{Shard: shard(1), Primary: true, CurrentNodeID: "node-1"}
		require.False(t, rn.Start(report))
	})
}

func TestRoutingNodes_Fail(t *testing.T) {
	t.Run("failed replica rejoins unassigned", func(t *testing.T) {
		replica := types.ShardRouting{Shard: shard(0), CurrentNodeID: "node-2", State: types.ShardStarted}
		rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 1,
			types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
			replica,
		))

		require.True(t, rn.Fail(replica))
		require.Empty(t, rn.Assigned("node-2"))
		require.Len(t, rn.Unassigned(), 1)
		require.False(t, rn.Unassigned()[0].Primary)
		require.Equal(t, types.ShardUnassigned, rn.Unassigned()[0].State)
	})

	t.Run("failed primary promotes an active replica", func(t *testing.T) {
		primary := types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted}
		rn := NewRoutingNodes(testState([]string{"node-1", "node-2", "node-3"}, 2,
			primary,
			types.ShardRouting{Shard: shard(0), CurrentNodeID: "node-2", State: types.ShardStarted},
			types.ShardRouting{Shard: shard(0), CurrentNodeID: "node-3", State: types.ShardStarted},
		))

		require.True(t, rn.Fail(primary))

		// Promotion walks node IDs in sorted order, so node-2 wins.
		require.True(t, rn.Assigned("node-2")[0].Primary)
		require.False(t, rn.Assigned("node-3")[0].Primary)

		// The failed copy rejoins as a replica, not a second primary.
		require.Len(t, rn.Unassigned(), 1)
		require.False(t, rn.Unassigned()[0].Primary)
	})

	t.Run("failed primary without an active replica stays primary", func(t *testing.T) {
		primary := types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted}
		rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 1,
			primary,
			types.ShardRouting{Shard: shard(0), CurrentNodeID: "node-2", State: types.ShardInitializing},
		))

		require.True(t, rn.Fail(primary))
		require.Len(t, rn.Unassigned(), 1)
		require.True(t, rn.Unassigned()[0].Primary)
	})
}

func TestRoutingNodes_Relocate(t *testing.T) {
	started := types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted}
	rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 0, started))

	require.True(t, rn.Relocate(started, "node-2"))

	moving := rn.Assigned("node-1")[0]
	require.Equal(t, types.ShardRelocating, moving.State)
	require.Equal(t, "node-1", moving.CurrentNodeID)
	require.Equal(t, "node-2", moving.RelocatingNodeID)

	// Only started copies relocate.
	require.False(t, rn.Relocate(moving, "node-2"))
}

func TestRoutingNodes_ProjectedShards(t *testing.T) {
	rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 1,
		types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", RelocatingNodeID: "node-2", State: types.ShardRelocating},
		types.ShardRouting{Shard: shard(1), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
	))

	// The relocating copy counts at its target, not its source.
	require.Equal(t, 1, rn.ProjectedShards("node-1"))
	require.Equal(t, 1, rn.ProjectedShards("node-2"))

	// NumShards still reflects current residency.
	require.Equal(t, 2, rn.NumShards("node-1"))
	require.Equal(t, 0, rn.NumShards("node-2"))
}

func TestRoutingNodes_NumInitializing(t *testing.T) {
	rn := NewRoutingNodes(testState([]string{"node-1", "node-2"}, 1,
		types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", RelocatingNodeID: "node-2", State: types.ShardRelocating},
		types.ShardRouting{Shard: shard(1), Primary: true, CurrentNodeID: "node-2", State: types.ShardInitializing},
		types.ShardRouting{Shard: shard(1), CurrentNodeID: "node-1", State: types.ShardStarted},
	))

	// node-2 is recovering one initializing copy plus one incoming
	// relocation target.
	require.Equal(t, 2, rn.NumInitializing("node-2"))
	require.Equal(t, 0, rn.NumInitializing("node-1"))
}

func TestRoutingNodes_TableRoundTrip(t *testing.T) {
	state := testState([]string{"node-1", "node-2"}, 1,
		types.ShardRouting{Shard: shard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
		types.ShardRouting{Shard: shard(0), State: types.ShardUnassigned},
		types.ShardRouting{Shard: shard(1), Primary: true, CurrentNodeID: "node-2", State: types.ShardInitializing},
	)

	rn := NewRoutingNodes(state)
	require.True(t, rn.Table().Equal(state.RoutingTable))
}
