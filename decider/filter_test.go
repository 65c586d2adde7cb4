package decider

import (
	"testing"

	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	nodes := []testNode{
		{id: "node-hot", attrs: map[string]string{"tier": "hot", "zone": "a"}},
		{id: "node-warm", attrs: map[string]string{"tier": "warm", "zone": "b"}},
		{id: "node-bare", attrs: nil},
	}
	shard := types.ShardRouting{Shard: logsShard(0)}

	t.Run("no filters configured allows everything", func(t *testing.T) {
		d := NewFilter(settings.New(nil), nil)
		alloc := newTestAllocation(nodes, 1)

		decision := d.CanAllocate(shard, "node-bare", alloc)
		require.Equal(t, types.DecisionYes, decision.Type())
	})

	t.Run("require filter", func(t *testing.T) {
		store := settings.New(map[string]string{
			settings.KeyRequirePrefix + "tier": "hot",
		})
		d := NewFilter(store, nil)
		alloc := newTestAllocation(nodes, 1)

		require.Equal(t, types.DecisionYes, d.CanAllocate(shard, "node-hot", alloc).Type())
		require.Equal(t, types.DecisionNo, d.CanAllocate(shard, "node-warm", alloc).Type())
		require.Equal(t, types.DecisionNo, d.CanAllocate(shard, "node-bare", alloc).Type())
	})

	t.Run("require filter accepts any listed value", func(t *testing.T) {
		store := settings.New(map[string]string{
			settings.KeyRequirePrefix + "tier": "hot, warm",
		})
		d := NewFilter(store, nil)
		alloc := newTestAllocation(nodes, 1)

		require.Equal(t, types.DecisionYes, d.CanAllocate(shard, "node-hot", alloc).Type())
		require.Equal(t, types.DecisionYes, d.CanAllocate(shard, "node-warm", alloc).Type())
	})

	t.Run("exclude filter", func(t *testing.T) {
		store := settings.New(map[string]string{
			settings.KeyExcludePrefix + "zone": "b",
		})
		d := NewFilter(store, nil)
		alloc := newTestAllocation(nodes, 1)

		require.Equal(t, types.DecisionYes, d.CanAllocate(shard, "node-hot", alloc).Type())
		require.Equal(t, types.DecisionNo, d.CanAllocate(shard, "node-warm", alloc).Type())

		// Nodes without the attribute cannot match an exclusion.
		require.Equal(t, types.DecisionYes, d.CanAllocate(shard, "node-bare", alloc).Type())
	})

	t.Run("can_remain evicts from newly excluded nodes", func(t *testing.T) {
		store := settings.New(nil)
		d := NewFilter(store, nil)
		resident := types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-warm", State: types.ShardStarted}
		alloc := newTestAllocation(nodes, 1, resident)

		require.Equal(t, types.DecisionYes, d.CanRemain(resident, "node-warm", alloc).Type())

		store.Apply(map[string]string{settings.KeyExcludePrefix + "zone": "b"})
		require.Equal(t, types.DecisionNo, d.CanRemain(resident, "node-warm", alloc).Type())
	})

	t.Run("clearing a filter restores eligibility", func(t *testing.T) {
		store := settings.New(map[string]string{
			settings.KeyRequirePrefix + "tier": "hot",
		})
		d := NewFilter(store, nil)
		alloc := newTestAllocation(nodes, 1)

		require.Equal(t, types.DecisionNo, d.CanAllocate(shard, "node-warm", alloc).Type())

		store.Apply(map[string]string{settings.KeyRequirePrefix + "tier": ""})
		require.Equal(t, types.DecisionYes, d.CanAllocate(shard, "node-warm", alloc).Type())
	})
}
