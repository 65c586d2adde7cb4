package allocation

import (
	"sort"
	"time"

	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/metrics"
	"github.com/arloliu/shardalloc/types"
)

// Service applies the net effect of decider outcomes to produce new
// immutable cluster routing states.
//
// The service is used both for normal reroute passes and for applying
// failed/started shard batches. It holds no mutable state of its own; every
// method takes the current immutable state and returns either a new state
// or the input unchanged.
//
// All methods must be called from the single master-side update goroutine.
type Service struct {
	deciders *Deciders
	logger   types.Logger
	metrics  types.AllocationMetrics
}

// NewService creates an allocation service over the given decider set.
//
// Parameters:
//   - deciders: Registered decider aggregate (required)
//   - log: Logger (nil for no-op)
//   - collector: Allocation metrics (nil for no-op)
//
// Returns:
//   - *Service: Initialized allocation service
func NewService(deciders *Deciders, log types.Logger, collector types.AllocationMetrics) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	if collector == nil {
		collector = metrics.NewNop()
	}

	return &Service{deciders: deciders, logger: log, metrics: collector}
}

// Deciders returns the registered decider aggregate.
func (s *Service) Deciders() *Deciders {
	return s.deciders
}

// ApplyStartedShards marks the reported shard copies as started and returns
// the resulting state.
//
// Stale entries (unknown copy, index UUID mismatch) are ignored. The input
// state is returned unchanged, with changed=false, when no entry applied.
//
// Parameters:
//   - state: Current immutable cluster state
//   - entries: Started-shard reports coalesced into this batch
//
// Returns:
//   - types.ClusterState: New state (or the input if nothing changed)
//   - bool: true if the routing table changed
func (s *Service) ApplyStartedShards(state types.ClusterState, entries []types.ShardEntry) (types.ClusterState, bool) {
	alloc := NewRoutingAllocation(state)

	changed := false
	for _, entry := range entries {
		if !s.entryCurrent(state, entry) {
			s.logger.Debug("ignoring stale shard-started entry", "entry", entry.String())

			continue
		}
		if alloc.Nodes().Start(entry.Routing) {
			changed = true
		}
	}

	if !changed {
		return state, false
	}

	return state.WithRoutingTable(alloc.Nodes().Table()), true
}

// ApplyFailedShards detaches the reported shard copies from their nodes and
// returns the resulting state.
//
// A failed primary promotes an active replica when one exists. Stale
// entries are ignored. The input state is returned unchanged, with
// changed=false, when no entry applied.
//
// Parameters:
//   - state: Current immutable cluster state
//   - entries: Failed-shard reports coalesced into this batch
//
// Returns:
//   - types.ClusterState: New state (or the input if nothing changed)
//   - bool: true if the routing table changed
func (s *Service) ApplyFailedShards(state types.ClusterState, entries []types.ShardEntry) (types.ClusterState, bool) {
	alloc := NewRoutingAllocation(state)

	changed := false
	for _, entry := range entries {
		if !s.entryCurrent(state, entry) {
			s.logger.Debug("ignoring stale shard-failed entry", "entry", entry.String())

			continue
		}
		if alloc.Nodes().Fail(entry.Routing) {
			s.logger.Info("applied shard failure",
				"shard", entry.Routing.String(),
				"message", entry.Message,
				"failure", entry.Failure,
			)
			changed = true
		}
	}

	if !changed {
		return state, false
	}

	return state.WithRoutingTable(alloc.Nodes().Table()), true
}

// Reroute runs one decider-driven allocation pass. Unassigned shards are
// placed on eligible nodes, started shards that may no longer remain on
// their node (a newly applied exclude filter, an awareness imbalance) are
// relocated, and, when the rebalance policy permits, started shards are
// moved from overloaded to underloaded nodes.
//
// Parameters:
//   - state: Current immutable cluster state
//   - reason: Human-readable trigger description for logging/metrics
//
// Returns:
//   - types.ClusterState: New state (or the input if nothing changed)
//   - bool: true if the routing table changed
func (s *Service) Reroute(state types.ClusterState, reason string) (types.ClusterState, bool) {
	start := time.Now()
	alloc := NewRoutingAllocation(state)

	changed := s.allocateUnassigned(alloc)
	if s.moveShards(alloc) {
		changed = true
	}
	if s.rebalance(alloc) {
		changed = true
	}

	table := alloc.Nodes().Table()
	if !changed || table.Equal(state.RoutingTable) {
		s.metrics.RecordReroute(reason, false, time.Since(start).Seconds())

		return state, false
	}

	newState := state.WithRoutingTable(table)
	s.metrics.RecordReroute(reason, true, time.Since(start).Seconds())
	s.metrics.RecordUnassignedShards(len(table.Unassigned()))
	s.logger.Info("reroute changed routing",
		"reason", reason,
		"version", newState.Version,
		"unassigned", len(table.Unassigned()),
	)

	return newState, true
}

// allocateUnassigned places unassigned copies on eligible nodes, primaries
// before replicas.
func (s *Service) allocateUnassigned(alloc *RoutingAllocation) bool {
	pending := make([]types.ShardRouting, len(alloc.Nodes().Unassigned()))
	copy(pending, alloc.Nodes().Unassigned())
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Primary && !pending[j].Primary
	})

	changed := false
	for _, shard := range pending {
		nodeID, throttled := chooseNode(s.deciders, shard, alloc)
		if nodeID == "" {
			outcome := "NO"
			if throttled {
				outcome = "THROTTLE"
			}
			s.metrics.RecordDecision("allocate", outcome)
			s.logger.Debug("shard not allocatable this pass",
				"shard", shard.String(),
				"throttled", throttled,
			)

			continue
		}

		s.metrics.RecordDecision("allocate", "YES")
		alloc.Nodes().Assign(shard, nodeID)
		changed = true
	}

	return changed
}

// moveShards relocates started shards off nodes the decider chain no
// longer permits them to remain on.
func (s *Service) moveShards(alloc *RoutingAllocation) bool {
	nodes := alloc.Nodes()
	moved := false

	for _, nodeID := range nodes.NodeIDs() {
		// Relocate mutates the per-node lists, so walk a snapshot.
		routings := make([]types.ShardRouting, len(nodes.Assigned(nodeID)))
		copy(routings, nodes.Assigned(nodeID))

		for _, shard := range routings {
			if !shard.Started() {
				continue
			}

			remain := s.deciders.CanRemain(shard, nodeID, alloc)
			if remain.Type() != types.DecisionNo {
				continue
			}
			s.metrics.RecordDecision("remain", "NO")

			targetNodeID, _ := chooseNode(s.deciders, shard, alloc)
			if targetNodeID == "" {
				s.logger.Debug("shard must move but no node can take it",
					"shard", shard.String(),
					"node", nodeID,
					"decision", remain.String(),
				)

				continue
			}

			if nodes.Relocate(shard, targetNodeID) {
				s.logger.Info("moving shard off vetoed node",
					"shard", shard.String(),
					"from", nodeID,
					"to", targetNodeID,
					"decision", remain.String(),
				)
				moved = true
			}
		}
	}

	return moved
}

// rebalance moves started shards from the most-loaded to the least-loaded
// node while the decider chain permits and the spread exceeds one shard.
func (s *Service) rebalance(alloc *RoutingAllocation) bool {
	nodes := alloc.Nodes()
	moved := false

	// One candidate move per node per pass bounds the loop; remaining
	// imbalance is picked up by the next reroute.
	for range nodes.NodeIDs() {
		maxNode, minNode := s.loadExtremes(nodes)
		if maxNode == "" || nodes.ProjectedShards(maxNode)-nodes.ProjectedShards(minNode) < 2 {
			break
		}

		if !s.relocateOne(alloc, maxNode, minNode) {
			break
		}
		moved = true
	}

	return moved
}

// loadExtremes returns the most- and least-loaded node IDs by projected
// shard count, walking nodes in sorted order for determinism.
func (s *Service) loadExtremes(nodes *RoutingNodes) (maxNode, minNode string) {
	for _, id := range nodes.NodeIDs() {
		count := nodes.ProjectedShards(id)
		if maxNode == "" || count > nodes.ProjectedShards(maxNode) {
			maxNode = id
		}
		if minNode == "" || count < nodes.ProjectedShards(minNode) {
			minNode = id
		}
	}

	return maxNode, minNode
}

// relocateOne moves the first started shard on the source node that the
// decider chain allows to rebalance to the target node.
func (s *Service) relocateOne(alloc *RoutingAllocation, sourceNodeID, targetNodeID string) bool {
	for _, shard := range alloc.Nodes().Assigned(sourceNodeID) {
		if !shard.Started() {
			continue
		}

		rebalance := s.deciders.CanRebalance(shard, alloc)
		if rebalance.Type() != types.DecisionYes {
			s.metrics.RecordDecision("rebalance", rebalance.Type().String())
			s.logger.Debug("rebalance not permitted", "shard", shard.String(), "decision", rebalance.String())

			continue
		}

		allocate := s.deciders.CanAllocate(shard, targetNodeID, alloc)
		if allocate.Type() != types.DecisionYes {
			s.metrics.RecordDecision("allocate", allocate.Type().String())

			continue
		}

		s.metrics.RecordDecision("rebalance", "YES")

		return alloc.Nodes().Relocate(shard, targetNodeID)
	}

	return false
}

// entryCurrent reports whether the entry refers to the current incarnation
// of its index. Entries for unknown indices are accepted so that tests and
// minimal states without metadata still apply.
func (s *Service) entryCurrent(state types.ClusterState, entry types.ShardEntry) bool {
	md, ok := state.Metadata.Index(entry.Routing.Shard.Index)
	if !ok {
		return true
	}

	return entry.IndexUUID == "" || entry.IndexUUID == md.UUID
}
