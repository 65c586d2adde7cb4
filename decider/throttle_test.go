package decider

import (
	"testing"

	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

func TestThrottle(t *testing.T) {
	nodes := []testNode{{id: "node-1"}, {id: "node-2"}}

	t.Run("below the limit is allowed", func(t *testing.T) {
		d := NewThrottle(nil, nil)
		alloc := newTestAllocation(nodes, 2,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardInitializing},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("at the limit is throttled, not vetoed", func(t *testing.T) {
		d := NewThrottle(nil, nil)
		alloc := newTestAllocation(nodes, 2,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardInitializing},
			types.ShardRouting{Shard: logsShard(0), CurrentNodeID: "node-1", State: types.ShardInitializing},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionThrottle, decision.Type())
		require.Contains(t, decision.Explanation(), "concurrent recoveries")

		// The other node is still free.
		decision = d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-2", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("started shards do not count against the limit", func(t *testing.T) {
		d := NewThrottle(nil, nil)
		alloc := newTestAllocation(nodes, 2,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
			types.ShardRouting{Shard: logsShard(0), CurrentNodeID: "node-1", State: types.ShardStarted},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("limit follows the dynamic setting", func(t *testing.T) {
		store := settings.New(map[string]string{settings.KeyConcurrentRecoveries: "1"})
		d := NewThrottle(store, nil)
		require.Equal(t, 1, d.Limit())

		alloc := newTestAllocation(nodes, 2,
			types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardInitializing},
			types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
		)

		decision := d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionThrottle, decision.Type())

		store.Apply(map[string]string{settings.KeyConcurrentRecoveries: "4"})
		require.Equal(t, 4, d.Limit())

		decision = d.CanAllocate(types.ShardRouting{Shard: logsShard(0)}, "node-1", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("invalid setting falls back to the default", func(t *testing.T) {
		store := settings.New(nil)
		d := NewThrottle(store, nil)

		store.Apply(map[string]string{settings.KeyConcurrentRecoveries: "zero"})
		require.Equal(t, DefaultConcurrentRecoveries, d.Limit())

		store.Apply(map[string]string{settings.KeyConcurrentRecoveries: "-3"})
		require.Equal(t, DefaultConcurrentRecoveries, d.Limit())
	})
}
