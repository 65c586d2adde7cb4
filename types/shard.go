package types

import "fmt"

// ShardRoutingState represents the lifecycle state of a single shard copy.
//
// States follow a defined progression during normal operation:
//
//	ShardUnassigned → ShardInitializing → ShardStarted
//
// A started shard may additionally enter ShardRelocating while it is being
// moved to another node; the relocation target appears as an initializing
// copy until the move completes.
type ShardRoutingState int

const (
	// ShardUnassigned indicates the shard copy is not allocated to any node.
	ShardUnassigned ShardRoutingState = iota

	// ShardInitializing indicates the shard copy is recovering on its
	// assigned node and is not yet serving traffic.
	ShardInitializing

	// ShardStarted indicates the shard copy is active on its assigned node.
	ShardStarted

	// ShardRelocating indicates the shard copy is active but being moved
	// to RelocatingNodeID.
	ShardRelocating
)

// String returns the string representation of the routing state.
func (s ShardRoutingState) String() string {
	switch s {
	case ShardUnassigned:
		return "UNASSIGNED"
	case ShardInitializing:
		return "INITIALIZING"
	case ShardStarted:
		return "STARTED"
	case ShardRelocating:
		return "RELOCATING"
	default:
		return "UNKNOWN"
	}
}

// ShardID uniquely identifies one logical shard within the cluster.
type ShardID struct {
	// Index is the name of the index the shard belongs to.
	Index string `json:"index"`

	// ID is the shard number within the index.
	ID int `json:"id"`
}

// String returns the canonical "[index][n]" representation of the shard ID.
func (s ShardID) String() string {
	return fmt.Sprintf("[%s][%d]", s.Index, s.ID)
}

// ShardRouting identifies one copy (primary or replica) of a logical shard
// and where it currently lives.
//
// ShardRouting values are immutable snapshots: routing never mutates in
// place, a new routing table is constructed whenever placement changes.
// Mutating helpers therefore return a new value rather than modifying the
// receiver.
type ShardRouting struct {
	// Shard identifies the logical shard this copy belongs to.
	Shard ShardID `json:"shard"`

	// Primary is true for the primary copy, false for replicas.
	Primary bool `json:"primary"`

	// CurrentNodeID is the node the copy is allocated to, or "" when
	// unassigned.
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// RelocatingNodeID is the target node while State is ShardRelocating,
	// "" otherwise.
	RelocatingNodeID string `json:"relocating_node_id,omitempty"`

	// State is the current lifecycle state of this copy.
	State ShardRoutingState `json:"state"`
}

// Assigned reports whether the copy is currently allocated to a node.
func (r ShardRouting) Assigned() bool {
	return r.CurrentNodeID != ""
}

// Unassigned reports whether the copy is not allocated to any node.
func (r ShardRouting) Unassigned() bool {
	return r.State == ShardUnassigned
}

// Initializing reports whether the copy is recovering on its node.
func (r ShardRouting) Initializing() bool {
	return r.State == ShardInitializing
}

// Active reports whether the copy serves traffic (started or relocating).
func (r ShardRouting) Active() bool {
	return r.State == ShardStarted || r.State == ShardRelocating
}

// Relocating reports whether the copy is being moved to another node.
func (r ShardRouting) Relocating() bool {
	return r.State == ShardRelocating
}

// Started reports whether the copy is started and not relocating.
func (r ShardRouting) Started() bool {
	return r.State == ShardStarted
}

// AssignedTo returns a copy of the routing assigned to the given node in
// the initializing state.
func (r ShardRouting) AssignedTo(nodeID string) ShardRouting {
	r.CurrentNodeID = nodeID
	r.RelocatingNodeID = ""
	r.State = ShardInitializing

	return r
}

// AsStarted returns a copy of the routing moved to the started state on its
// current node. Any in-flight relocation is cancelled.
func (r ShardRouting) AsStarted() ShardRouting {
	r.RelocatingNodeID = ""
	r.State = ShardStarted

	return r
}

// AsUnassigned returns a copy of the routing detached from any node.
func (r ShardRouting) AsUnassigned() ShardRouting {
	r.CurrentNodeID = ""
	r.RelocatingNodeID = ""
	r.State = ShardUnassigned

	return r
}

// AsRelocating returns a copy of the routing marked as relocating to the
// given target node.
func (r ShardRouting) AsRelocating(targetNodeID string) ShardRouting {
	r.RelocatingNodeID = targetNodeID
	r.State = ShardRelocating

	return r
}

// AsPrimary returns a copy of the routing promoted to primary.
func (r ShardRouting) AsPrimary() ShardRouting {
	r.Primary = true

	return r
}

// SameShard reports whether both routings refer to the same logical shard.
func (r ShardRouting) SameShard(other ShardRouting) bool {
	return r.Shard == other.Shard
}

// SameCopy reports whether both routings refer to the same physical copy:
// same logical shard, same primary flag, and same current node.
func (r ShardRouting) SameCopy(other ShardRouting) bool {
	return r.Shard == other.Shard &&
		r.Primary == other.Primary &&
		r.CurrentNodeID == other.CurrentNodeID
}

// String returns a short human-readable description of the routing.
func (r ShardRouting) String() string {
	role := "r"
	if r.Primary {
		role = "p"
	}

	if r.Relocating() {
		return fmt.Sprintf("%s[%s], node[%s], relocating to [%s]", r.Shard, role, r.CurrentNodeID, r.RelocatingNodeID)
	}
	if r.Assigned() {
		return fmt.Sprintf("%s[%s], node[%s], state[%s]", r.Shard, role, r.CurrentNodeID, r.State)
	}

	return fmt.Sprintf("%s[%s], unassigned", r.Shard, role)
}
