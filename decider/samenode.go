package decider

import (
	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/types"
)

const sameNodeName = "same_node"

// SameNode forbids placing two copies of one shard on the same node.
type SameNode struct {
	Base
}

// Compile-time assertion that SameNode implements Decider.
var _ allocation.Decider = (*SameNode)(nil)

// NewSameNode creates the same-node decider.
func NewSameNode() *SameNode {
	return &SameNode{Base: NewBase(sameNodeName)}
}

// CanAllocate returns NO when another copy of the shard already lives on
// the candidate node, or is relocating onto it.
func (d *SameNode) CanAllocate(shard types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	for _, copyRouting := range alloc.Nodes().CopiesOf(shard.Shard) {
		if copyRouting.Unassigned() || copyRouting.SameCopy(shard) {
			continue
		}

		if copyRouting.CurrentNodeID == nodeID ||
			(copyRouting.Relocating() && copyRouting.RelocatingNodeID == nodeID) {
			return types.NewDecision(types.DecisionNo, sameNodeName,
				"another copy of shard %s is already allocated to node [%s]", shard.Shard, nodeID)
		}
	}

	return types.NewDecision(types.DecisionYes, sameNodeName, "no other copy of the shard on node [%s]", nodeID)
}
