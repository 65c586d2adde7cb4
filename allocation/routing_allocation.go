package allocation

import "github.com/arloliu/shardalloc/types"

// RoutingAllocation is the short-lived mutable context passed through the
// decider chain during one allocation pass.
//
// It bundles the mutable RoutingNodes view with the read-only pieces of the
// originating cluster state that deciders consult: membership and per-index
// metadata. A context is created at the start of an allocation computation
// and discarded after the pass completes; its mutations are captured into a
// new immutable cluster state before discard.
type RoutingAllocation struct {
	nodes    *RoutingNodes
	metadata types.Metadata
	members  types.DiscoveryNodes
}

// NewRoutingAllocation creates a fresh allocation context from the given
// cluster state.
func NewRoutingAllocation(state types.ClusterState) *RoutingAllocation {
	return &RoutingAllocation{
		nodes:    NewRoutingNodes(state),
		metadata: state.Metadata,
		members:  state.Nodes,
	}
}

// Nodes returns the mutable per-node routing view.
func (a *RoutingAllocation) Nodes() *RoutingNodes {
	return a.nodes
}

// Metadata returns the per-index metadata snapshot.
func (a *RoutingAllocation) Metadata() types.Metadata {
	return a.metadata
}

// Members returns the cluster membership snapshot.
func (a *RoutingAllocation) Members() types.DiscoveryNodes {
	return a.members
}

// Replicas returns the configured replica count for the given index, or 0
// when the index is unknown.
func (a *RoutingAllocation) Replicas(index string) int {
	md, ok := a.metadata.Index(index)
	if !ok {
		return 0
	}

	return md.NumberOfReplicas
}
