package types

import "sort"

// DiscoveryNode describes one node known to the cluster.
//
// Attributes carry operator-assigned metadata such as rack or zone labels
// and are consumed by awareness and filter deciders.
type DiscoveryNode struct {
	// ID is the unique node identifier.
	ID string `json:"id"`

	// Name is the human-readable node name.
	Name string `json:"name,omitempty"`

	// Attributes holds node metadata such as {"zone": "us-east-1a"}.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the value of the named attribute and whether it is set.
func (n DiscoveryNode) Attribute(name string) (string, bool) {
	v, ok := n.Attributes[name]

	return v, ok
}

// DiscoveryNodes is the set of nodes in a cluster state, keyed by node ID.
type DiscoveryNodes struct {
	// Nodes maps node ID to node description.
	Nodes map[string]DiscoveryNode `json:"nodes,omitempty"`

	// MasterNodeID is the elected master's node ID, or "" when no master
	// is known.
	MasterNodeID string `json:"master_node_id,omitempty"`
}

// Get returns the node with the given ID and whether it exists.
func (d DiscoveryNodes) Get(nodeID string) (DiscoveryNode, bool) {
	n, ok := d.Nodes[nodeID]

	return n, ok
}

// Size returns the number of known nodes.
func (d DiscoveryNodes) Size() int {
	return len(d.Nodes)
}

// MasterNode returns the elected master node and whether one is known.
func (d DiscoveryNodes) MasterNode() (DiscoveryNode, bool) {
	if d.MasterNodeID == "" {
		return DiscoveryNode{}, false
	}

	return d.Get(d.MasterNodeID)
}

// IDs returns all node IDs in sorted order for deterministic iteration.
func (d DiscoveryNodes) IDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// WithNode returns a copy of the node set with the given node added or
// replaced.
func (d DiscoveryNodes) WithNode(n DiscoveryNode) DiscoveryNodes {
	nodes := make(map[string]DiscoveryNode, len(d.Nodes)+1)
	for id, existing := range d.Nodes {
		nodes[id] = existing
	}
	nodes[n.ID] = n

	return DiscoveryNodes{Nodes: nodes, MasterNodeID: d.MasterNodeID}
}

// WithMaster returns a copy of the node set with the master node ID set.
func (d DiscoveryNodes) WithMaster(nodeID string) DiscoveryNodes {
	d.MasterNodeID = nodeID

	return d
}
