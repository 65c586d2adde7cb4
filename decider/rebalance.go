package decider

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/types"
)

// RebalanceType selects when cluster rebalancing is permitted.
type RebalanceType int32

const (
	// RebalanceAlways permits rebalancing whenever a replication group is
	// active.
	RebalanceAlways RebalanceType = iota

	// RebalancePrimariesActive permits rebalancing only once every primary
	// shard cluster-wide is active.
	RebalancePrimariesActive

	// RebalanceAllActive permits rebalancing only once every shard,
	// primary and replica, is active. This is the default.
	RebalanceAllActive
)

// String returns the canonical setting string for the rebalance type.
func (t RebalanceType) String() string {
	switch t {
	case RebalanceAlways:
		return "always"
	case RebalancePrimariesActive:
		return "indices_primaries_active"
	case RebalanceAllActive:
		return "indices_all_active"
	default:
		return "unknown"
	}
}

// ParseRebalanceType parses a rebalance policy string.
//
// Recognized values (case-insensitive): "always",
// "indices_primaries_active", "indices_all_active".
//
// Parameters:
//   - value: Policy string to parse
//
// Returns:
//   - RebalanceType: Parsed policy
//   - error: ErrInvalidRebalanceType naming the offending value
func ParseRebalanceType(value string) (RebalanceType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "always":
		return RebalanceAlways, nil
	case "indices_primaries_active":
		return RebalancePrimariesActive, nil
	case "indices_all_active":
		return RebalanceAllActive, nil
	default:
		return RebalanceAllActive, fmt.Errorf("%w: [%s]", ErrInvalidRebalanceType, value)
	}
}

const rebalanceName = "cluster_rebalance"

// ClusterRebalance decides whether any rebalancing move is currently
// allowed, independent of which shard/node pair is being considered.
//
// The policy is re-read reactively whenever the governing cluster setting
// changes. An invalid configured string never crashes the decider: the
// live-update path logs the problem and falls back to RebalanceAllActive.
type ClusterRebalance struct {
	Base

	policy atomic.Int32 // RebalanceType
	logger types.Logger
}

// Compile-time assertion that ClusterRebalance implements Decider.
var _ allocation.Decider = (*ClusterRebalance)(nil)

// NewClusterRebalance creates the rebalance-timing decider bound to the
// given dynamic settings store.
//
// Parameters:
//   - store: Dynamic settings store (nil for a fixed default policy)
//   - log: Logger (nil for no-op)
//
// Returns:
//   - *ClusterRebalance: Initialized decider observing setting changes
func NewClusterRebalance(store *settings.Settings, log types.Logger) *ClusterRebalance {
	if log == nil {
		log = logger.NewNop()
	}

	d := &ClusterRebalance{Base: NewBase(rebalanceName), logger: log}
	d.policy.Store(int32(RebalanceAllActive))

	if store != nil {
		store.OnUpdate(func(updated map[string]string) {
			d.applySetting(updated[settings.KeyAllowRebalance])
		})
	}

	return d
}

// applySetting parses the live-updated policy, substituting the default on
// invalid input rather than propagating the error.
func (d *ClusterRebalance) applySetting(value string) {
	if value == "" {
		d.policy.Store(int32(RebalanceAllActive))

		return
	}

	parsed, err := ParseRebalanceType(value)
	if err != nil {
		d.logger.Warn("invalid cluster rebalance setting, keeping default",
			"value", value,
			"default", RebalanceAllActive.String(),
		)
		parsed = RebalanceAllActive
	}

	d.policy.Store(int32(parsed))
}

// Policy returns the currently active rebalance policy.
func (d *ClusterRebalance) Policy() RebalanceType {
	return RebalanceType(d.policy.Load())
}

// CanRebalance implements the rebalance-timing policy.
//
// For RebalancePrimariesActive it returns NO while any unassigned or
// inactive primary exists anywhere in the cluster; for RebalanceAllActive
// while any unassigned or inactive shard exists; for RebalanceAlways it
// returns YES unconditionally.
func (d *ClusterRebalance) CanRebalance(_ types.ShardRouting, alloc *allocation.RoutingAllocation) types.Decision {
	policy := d.Policy()

	switch policy {
	case RebalanceAlways:
		return types.NewDecision(types.DecisionYes, rebalanceName, "rebalancing is always allowed")

	case RebalancePrimariesActive:
		for _, r := range alloc.Nodes().Unassigned() {
			if r.Primary {
				return types.NewDecision(types.DecisionNo, rebalanceName,
					"cluster has unassigned primary shards and policy is [%s]", policy)
			}
		}
		for _, nodeID := range alloc.Nodes().NodeIDs() {
			for _, r := range alloc.Nodes().Assigned(nodeID) {
				if r.Primary && !r.Active() {
					return types.NewDecision(types.DecisionNo, rebalanceName,
						"cluster has inactive primary shards and policy is [%s]", policy)
				}
			}
		}

		return types.NewDecision(types.DecisionYes, rebalanceName, "all primary shards are active")

	case RebalanceAllActive:
		fallthrough
	default:
		if len(alloc.Nodes().Unassigned()) > 0 {
			return types.NewDecision(types.DecisionNo, rebalanceName,
				"cluster has unassigned shards and policy is [%s]", policy)
		}
		for _, nodeID := range alloc.Nodes().NodeIDs() {
			for _, r := range alloc.Nodes().Assigned(nodeID) {
				if !r.Active() {
					return types.NewDecision(types.DecisionNo, rebalanceName,
						"cluster has inactive shards and policy is [%s]", policy)
				}
			}
		}

		return types.NewDecision(types.DecisionYes, rebalanceName, "all shards are active")
	}
}
