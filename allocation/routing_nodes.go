package allocation

import (
	"github.com/arloliu/shardalloc/types"
)

// RoutingNodes is the mutable per-node view of shard assignments used
// during one allocation pass.
//
// It is built from an immutable routing table, mutated by the allocation
// engine, and captured back into a new immutable table when the pass
// completes. It must never outlive the pass that created it.
type RoutingNodes struct {
	assigned   map[string][]types.ShardRouting
	unassigned []types.ShardRouting
	nodeIDs    []string
}

// NewRoutingNodes builds a mutable routing view from the given state.
//
// Every node in the state's membership gets an entry, including nodes with
// no shards, so deciders can consider empty nodes as placement candidates.
func NewRoutingNodes(state types.ClusterState) *RoutingNodes {
	rn := &RoutingNodes{
		assigned: make(map[string][]types.ShardRouting, state.Nodes.Size()),
		nodeIDs:  state.Nodes.IDs(),
	}

	for _, id := range rn.nodeIDs {
		rn.assigned[id] = nil
	}

	for _, r := range state.RoutingTable.Shards {
		if r.Unassigned() {
			rn.unassigned = append(rn.unassigned, r)

			continue
		}
		rn.assigned[r.CurrentNodeID] = append(rn.assigned[r.CurrentNodeID], r)
	}

	return rn
}

// NodeIDs returns all node IDs in sorted order.
func (rn *RoutingNodes) NodeIDs() []string {
	return rn.nodeIDs
}

// Assigned returns the routings currently assigned to the given node.
func (rn *RoutingNodes) Assigned(nodeID string) []types.ShardRouting {
	return rn.assigned[nodeID]
}

// NumShards returns the number of shard copies assigned to the given node.
func (rn *RoutingNodes) NumShards(nodeID string) int {
	return len(rn.assigned[nodeID])
}

// ProjectedShards returns the shard count the node will hold once in-flight
// relocations complete: copies relocating away stop counting, copies
// relocating in start counting. Used as the load measure when ranking
// placement candidates.
func (rn *RoutingNodes) ProjectedShards(nodeID string) int {
	count := 0
	for _, r := range rn.assigned[nodeID] {
		if !r.Relocating() {
			count++
		}
	}
	for _, id := range rn.nodeIDs {
		if id == nodeID {
			continue
		}
		for _, r := range rn.assigned[id] {
			if r.Relocating() && r.RelocatingNodeID == nodeID {
				count++
			}
		}
	}

	return count
}

// NumInitializing returns the number of copies currently recovering onto
// the given node: initializing copies plus incoming relocation targets.
func (rn *RoutingNodes) NumInitializing(nodeID string) int {
	count := 0
	for _, r := range rn.assigned[nodeID] {
		if r.Initializing() {
			count++
		}
	}
	for _, id := range rn.nodeIDs {
		if id == nodeID {
			continue
		}
		for _, r := range rn.assigned[id] {
			if r.Relocating() && r.RelocatingNodeID == nodeID {
				count++
			}
		}
	}

	return count
}

// Unassigned returns the unassigned routings.
func (rn *RoutingNodes) Unassigned() []types.ShardRouting {
	return rn.unassigned
}

// CopiesOf returns all routings of the given logical shard, assigned and
// unassigned.
func (rn *RoutingNodes) CopiesOf(shard types.ShardID) []types.ShardRouting {
	var copies []types.ShardRouting
	for _, id := range rn.nodeIDs {
		for _, r := range rn.assigned[id] {
			if r.Shard == shard {
				copies = append(copies, r)
			}
		}
	}
	for _, r := range rn.unassigned {
		if r.Shard == shard {
			copies = append(copies, r)
		}
	}

	return copies
}

// Assign moves an unassigned routing onto the given node in the
// initializing state. Routings that are not in the unassigned list are
// ignored.
func (rn *RoutingNodes) Assign(routing types.ShardRouting, nodeID string) {
	for i, r := range rn.unassigned {
		if r.Shard == routing.Shard && r.Primary == routing.Primary {
			rn.unassigned = append(rn.unassigned[:i], rn.unassigned[i+1:]...)
			rn.assigned[nodeID] = append(rn.assigned[nodeID], r.AssignedTo(nodeID))

			return
		}
	}
}

// Start marks the copy matching the given routing as started on its node.
// A relocating copy whose target matches the reporter completes the move
// onto the target node.
//
// Returns true if a copy changed state.
func (rn *RoutingNodes) Start(routing types.ShardRouting) bool {
	for nodeID, routings := range rn.assigned {
		for i, r := range routings {
			if r.Shard != routing.Shard || r.Primary != routing.Primary {
				continue
			}

			switch {
			case r.Initializing() && r.CurrentNodeID == routing.CurrentNodeID:
				rn.assigned[nodeID][i] = r.AsStarted()

				return true
			case r.Relocating() && r.RelocatingNodeID == routing.CurrentNodeID:
				// Relocation target finished recovery: the copy moves to
				// the target node and the source copy disappears.
				rn.assigned[nodeID] = append(routings[:i], routings[i+1:]...)
				moved := r.AsStarted()
				moved.CurrentNodeID = routing.CurrentNodeID
				rn.assigned[moved.CurrentNodeID] = append(rn.assigned[moved.CurrentNodeID], moved)

				return true
			}
		}
	}

	return false
}

// Fail detaches the copy matching the given routing from its node, leaving
// it unassigned. A failed primary promotes an active replica when one
// exists: the replica becomes the primary and the failed copy rejoins the
// unassigned list as a replica.
//
// Returns true if a copy changed state.
func (rn *RoutingNodes) Fail(routing types.ShardRouting) bool {
	for nodeID, routings := range rn.assigned {
		for i, r := range routings {
			if !r.SameCopy(routing) {
				continue
			}

			rn.assigned[nodeID] = append(routings[:i], routings[i+1:]...)

			failed := r.AsUnassigned()
			if r.Primary && rn.promoteReplica(r.Shard) {
				failed.Primary = false
			}
			rn.unassigned = append(rn.unassigned, failed)

			return true
		}
	}

	return false
}

// promoteReplica promotes the first active replica of the given shard to
// primary. Node IDs are walked in sorted order so promotion is
// deterministic.
func (rn *RoutingNodes) promoteReplica(shard types.ShardID) bool {
	for _, nodeID := range rn.nodeIDs {
		for i, r := range rn.assigned[nodeID] {
			if r.Shard == shard && !r.Primary && r.Active() {
				rn.assigned[nodeID][i] = r.AsPrimary()

				return true
			}
		}
	}

	return false
}

// Relocate marks the copy matching the given routing as relocating to the
// target node.
//
// Returns true if a copy changed state.
func (rn *RoutingNodes) Relocate(routing types.ShardRouting, targetNodeID string) bool {
	for nodeID, routings := range rn.assigned {
		for i, r := range routings {
			if r.SameCopy(routing) && r.Started() {
				rn.assigned[nodeID][i] = r.AsRelocating(targetNodeID)

				return true
			}
		}
	}

	return false
}

// Table captures the current view into a new immutable routing table.
func (rn *RoutingNodes) Table() types.RoutingTable {
	var shards []types.ShardRouting
	for _, nodeID := range rn.nodeIDs {
		shards = append(shards, rn.assigned[nodeID]...)
	}
	shards = append(shards, rn.unassigned...)

	return types.NewRoutingTable(shards)
}
