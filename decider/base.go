package decider

import (
	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/types"
)

// Base provides default-YES behavior for all decider checks.
//
// Concrete deciders embed Base and override only the checks they
// constrain, so adding a method to the Decider interface does not break
// every implementation.
type Base struct {
	name string
}

// Compile-time assertion that Base implements Decider.
var _ allocation.Decider = (*Base)(nil)

// NewBase creates a base decider with the given label.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the decider label.
func (b Base) Name() string {
	return b.name
}

// CanAllocate permits the allocation by default.
func (b Base) CanAllocate(_ types.ShardRouting, _ string, _ *allocation.RoutingAllocation) types.Decision {
	return types.NewDecision(types.DecisionYes, b.name, "no allocation constraint")
}

// CanRemain permits the residency by default.
func (b Base) CanRemain(_ types.ShardRouting, _ string, _ *allocation.RoutingAllocation) types.Decision {
	return types.NewDecision(types.DecisionYes, b.name, "no residency constraint")
}

// CanRebalance permits rebalancing by default.
func (b Base) CanRebalance(_ types.ShardRouting, _ *allocation.RoutingAllocation) types.Decision {
	return types.NewDecision(types.DecisionYes, b.name, "no rebalance constraint")
}
