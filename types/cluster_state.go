package types

import "sort"

// IndexMetadata holds the per-index settings the allocator needs.
type IndexMetadata struct {
	// Name is the index name.
	Name string `json:"name"`

	// UUID distinguishes reincarnations of an index with the same name.
	UUID string `json:"uuid"`

	// NumberOfShards is the count of logical shards in the index.
	NumberOfShards int `json:"number_of_shards"`

	// NumberOfReplicas is the count of replica copies per shard
	// (excluding the primary).
	NumberOfReplicas int `json:"number_of_replicas"`
}

// Metadata holds cluster-wide index metadata, keyed by index name.
type Metadata struct {
	Indices map[string]IndexMetadata `json:"indices,omitempty"`
}

// Index returns the metadata for the named index and whether it exists.
func (m Metadata) Index(name string) (IndexMetadata, bool) {
	md, ok := m.Indices[name]

	return md, ok
}

// RoutingTable is the full set of shard routings in a cluster state.
//
// The table is an immutable snapshot: mutations construct a new table. The
// slice is kept in a stable order (index, shard id, primary first) so two
// tables with the same content compare equal element-wise.
type RoutingTable struct {
	Shards []ShardRouting `json:"shards,omitempty"`
}

// NewRoutingTable builds a routing table from the given routings, sorted
// into canonical order.
func NewRoutingTable(shards []ShardRouting) RoutingTable {
	sorted := make([]ShardRouting, len(shards))
	copy(sorted, shards)
	sortRoutings(sorted)

	return RoutingTable{Shards: sorted}
}

func sortRoutings(shards []ShardRouting) {
	sort.SliceStable(shards, func(i, j int) bool {
		a, b := shards[i], shards[j]
		if a.Shard.Index != b.Shard.Index {
			return a.Shard.Index < b.Shard.Index
		}
		if a.Shard.ID != b.Shard.ID {
			return a.Shard.ID < b.Shard.ID
		}
		if a.Primary != b.Primary {
			return a.Primary
		}

		return a.CurrentNodeID < b.CurrentNodeID
	})
}

// CopiesOf returns all routings belonging to the given logical shard.
func (t RoutingTable) CopiesOf(shard ShardID) []ShardRouting {
	var copies []ShardRouting
	for _, r := range t.Shards {
		if r.Shard == shard {
			copies = append(copies, r)
		}
	}

	return copies
}

// Unassigned returns all unassigned routings.
func (t RoutingTable) Unassigned() []ShardRouting {
	var unassigned []ShardRouting
	for _, r := range t.Shards {
		if r.Unassigned() {
			unassigned = append(unassigned, r)
		}
	}

	return unassigned
}

// HasUnassigned reports whether any routing is unassigned.
func (t RoutingTable) HasUnassigned() bool {
	for _, r := range t.Shards {
		if r.Unassigned() {
			return true
		}
	}

	return false
}

// HasInactive reports whether any routing is unassigned or still
// initializing without being a relocation target.
func (t RoutingTable) HasInactive() bool {
	for _, r := range t.Shards {
		if !r.Active() {
			return true
		}
	}

	return false
}

// Equal reports whether both tables contain the same routings in the same
// canonical order.
func (t RoutingTable) Equal(other RoutingTable) bool {
	if len(t.Shards) != len(other.Shards) {
		return false
	}
	for i, r := range t.Shards {
		if r != other.Shards[i] {
			return false
		}
	}

	return true
}

// ClusterState is a fully immutable snapshot of cluster membership,
// routing, and metadata.
//
// A new instance is built each time routing changes; existing instances are
// never mutated. Readers always see either wholly the old or wholly the new
// state because states are swapped by reference.
type ClusterState struct {
	// ClusterName identifies the cluster.
	ClusterName string `json:"cluster_name"`

	// Version increases by one for every published state.
	Version int64 `json:"version"`

	// Nodes is the current cluster membership.
	Nodes DiscoveryNodes `json:"nodes"`

	// RoutingTable is the shard placement snapshot.
	RoutingTable RoutingTable `json:"routing_table"`

	// Metadata holds per-index settings.
	Metadata Metadata `json:"metadata"`
}

// WithRoutingTable returns a new state carrying the given routing table and
// a bumped version.
func (s ClusterState) WithRoutingTable(table RoutingTable) ClusterState {
	s.RoutingTable = table
	s.Version++

	return s
}

// WithNodes returns a new state carrying the given node set and a bumped
// version.
func (s ClusterState) WithNodes(nodes DiscoveryNodes) ClusterState {
	s.Nodes = nodes
	s.Version++

	return s
}
