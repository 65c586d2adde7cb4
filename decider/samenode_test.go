package decider

import (
	"testing"

	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

func TestSameNode(t *testing.T) {
	d := NewSameNode()
	nodes := []testNode{{id: "node-1"}, {id: "node-2"}, {id: "node-3"}}

	t.Run("empty node is allowed", func(t *testing.T) {
		alloc := newTestAllocation(nodes, 1,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-2", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("node holding another copy is rejected", func(t *testing.T) {
		alloc := newTestAllocation(nodes, 1,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionNo, decision.Type())
		require.Contains(t, decision.Explanation(), "already allocated")
	})

	t.Run("relocation target is occupied", func(t *testing.T) {
		alloc := newTestAllocation(nodes, 1,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", RelocatingNodeID: "node-2", State: types.ShardRelocating},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-2", alloc)
		require.Equal(t, types.DecisionNo, decision.Type())
	})

	t.Run("copies of a different shard do not conflict", func(t *testing.T) {
		alloc := newTestAllocation(nodes, 1,
			types.ShardRouting{Shard: logsShard(1), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("own residency is not a conflict", func(t *testing.T) {
		resident := types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted}
		alloc := newTestAllocation(nodes, 1, resident)

		decision := d.CanAllocate(resident, "node-1", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})
}
