package allocation

import (
	"github.com/arloliu/shardalloc/types"
	"github.com/zeebo/xxh3"
)

// chooseNode picks the target node for a shard copy among all nodes the
// decider chain permits. It serves both initial placement of unassigned
// copies and target selection when an assigned copy must move.
//
// Candidates are ranked by current shard count (fewest first). Ties are
// broken by an xxh3 hash of the shard ID and node ID, which keeps placement
// deterministic across repeated passes while spreading equally-loaded
// candidates instead of always favoring the lexicographically first node.
//
// Returns:
//   - string: Chosen node ID ("" when no node is eligible)
//   - bool: true when at least one decider returned THROTTLE and no node
//     said YES, meaning the shard should be retried later without penalty
func chooseNode(deciders Decider, shard types.ShardRouting, alloc *RoutingAllocation) (string, bool) {
	var (
		best      string
		bestCount int
		bestHash  uint64
		throttled bool
	)

	for _, nodeID := range alloc.Nodes().NodeIDs() {
		// The node currently holding the copy is never a placement target.
		// Unassigned copies carry an empty current node, so this only
		// matters when choosing a move target for an assigned copy.
		if nodeID == shard.CurrentNodeID {
			continue
		}

		decision := deciders.CanAllocate(shard, nodeID, alloc)
		switch decision.Type() {
		case types.DecisionThrottle:
			throttled = true

			continue
		case types.DecisionNo:
			continue
		case types.DecisionYes:
		}

		count := alloc.Nodes().ProjectedShards(nodeID)
		hash := placementHash(shard.Shard, nodeID)

		if best == "" || count < bestCount || (count == bestCount && hash < bestHash) {
			best = nodeID
			bestCount = count
			bestHash = hash
		}
	}

	if best != "" {
		return best, false
	}

	return "", throttled
}

// placementHash computes a stable tie-break value for a shard/node pair.
func placementHash(shard types.ShardID, nodeID string) uint64 {
	return xxh3.HashString(shard.String() + "|" + nodeID)
}
