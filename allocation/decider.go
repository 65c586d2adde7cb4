package allocation

import "github.com/arloliu/shardalloc/types"

// Decider encapsulates one independent placement constraint.
//
// Implementations must be side-effect free and referentially transparent
// given the same allocation snapshot: all decider evaluation happens on the
// single master-side update goroutine and may be repeated freely.
//
// Decider implementations should:
//   - Be deterministic (same input → same output)
//   - Return NO or THROTTLE with an explanation, never panic or error
//   - Run quickly (called once per shard/node pair on the hot path)
type Decider interface {
	// Name returns the decider label used in decision explanations.
	Name() string

	// CanAllocate decides whether the given shard copy may be placed on
	// the given node.
	CanAllocate(shard types.ShardRouting, nodeID string, alloc *RoutingAllocation) types.Decision

	// CanRemain decides whether the given shard copy may stay on the node
	// it currently occupies.
	CanRemain(shard types.ShardRouting, nodeID string, alloc *RoutingAllocation) types.Decision

	// CanRebalance decides whether the given shard copy may take part in
	// rebalancing at this time.
	CanRebalance(shard types.ShardRouting, alloc *RoutingAllocation) types.Decision
}

// Deciders aggregates a registered set of deciders with all-must-agree
// semantics.
//
// Deciders are evaluated in registration order. The first NO short-circuits
// evaluation for that shard/node pair; order therefore only affects which
// explanation surfaces first, never the boolean outcome. THROTTLE outcomes
// are collected but do not veto.
type Deciders struct {
	deciders []Decider
}

// Compile-time assertion that the aggregate is itself a Decider.
var _ Decider = (*Deciders)(nil)

// NewDeciders creates an aggregate over the given deciders, preserving
// registration order.
func NewDeciders(deciders ...Decider) *Deciders {
	return &Deciders{deciders: deciders}
}

// Name implements Decider.
func (d *Deciders) Name() string {
	return "deciders"
}

// CanAllocate runs every registered decider's CanAllocate, short-circuiting
// on the first NO.
func (d *Deciders) CanAllocate(shard types.ShardRouting, nodeID string, alloc *RoutingAllocation) types.Decision {
	return d.aggregate(func(dec Decider) types.Decision {
		return dec.CanAllocate(shard, nodeID, alloc)
	})
}

// CanRemain runs every registered decider's CanRemain, short-circuiting on
// the first NO.
func (d *Deciders) CanRemain(shard types.ShardRouting, nodeID string, alloc *RoutingAllocation) types.Decision {
	return d.aggregate(func(dec Decider) types.Decision {
		return dec.CanRemain(shard, nodeID, alloc)
	})
}

// CanRebalance runs every registered decider's CanRebalance,
// short-circuiting on the first NO.
func (d *Deciders) CanRebalance(shard types.ShardRouting, alloc *RoutingAllocation) types.Decision {
	return d.aggregate(func(dec Decider) types.Decision {
		return dec.CanRebalance(shard, alloc)
	})
}

func (d *Deciders) aggregate(check func(Decider) types.Decision) types.Decision {
	var throttled types.Decision
	sawThrottle := false

	for _, dec := range d.deciders {
		decision := check(dec)
		switch decision.Type() {
		case types.DecisionNo:
			return decision
		case types.DecisionThrottle:
			if !sawThrottle {
				throttled = decision
				sawThrottle = true
			}
		case types.DecisionYes:
		}
	}

	if sawThrottle {
		return throttled
	}

	return types.NewDecision(types.DecisionYes, d.Name(), "all deciders permit the allocation")
}
