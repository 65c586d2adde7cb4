package decider

import (
	"strings"
	"sync/atomic"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/types"
)

const filterName = "filter"

// filterConfig is one immutable parse of the require/exclude filters.
type filterConfig struct {
	require map[string][]string
	exclude map[string][]string
}

// Filter enforces operator-supplied node attribute filters.
//
// A node is eligible only if it matches every "require" filter and no
// "exclude" filter. Filter values are comma-separated lists; a node matches
// a filter when its attribute equals any listed value.
type Filter struct {
	Base

	config atomic.Pointer[filterConfig]
	logger types.Logger
}

// Compile-time assertion that Filter implements Decider.
var _ allocation.Decider = (*Filter)(nil)

// NewFilter creates the attribute-filter decider bound to the given
// dynamic settings store.
//
// Parameters:
//   - store: Dynamic settings store (nil disables filtering)
//   - log: Logger (nil for no-op)
//
// Returns:
//   - *Filter: Initialized decider observing setting changes
func NewFilter(store *settings.Settings, log types.Logger) *Filter {
	if log == nil {
		log = logger.NewNop()
	}

	d := &Filter{Base: NewBase(filterName), logger: log}
	d.config.Store(&filterConfig{})

	if store != nil {
		store.OnUpdate(func(map[string]string) {
			d.applySettings(store)
		})
	}

	return d
}

func (d *Filter) applySettings(store *settings.Settings) {
	cfg := &filterConfig{
		require: parseFilters(store.WithPrefix(settings.KeyRequirePrefix)),
		exclude: parseFilters(store.WithPrefix(settings.KeyExcludePrefix)),
	}
	d.config.Store(cfg)
	d.logger.Debug("allocation filters updated", "require", cfg.require, "exclude", cfg.exclude)
}

func parseFilters(raw map[string]string) map[string][]string {
	if len(raw) == 0 {
		return nil
	}

	filters := make(map[string][]string, len(raw))
	for attr, list := range raw {
		var values []string
		for _, v := range strings.Split(list, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		if len(values) > 0 {
			filters[attr] = values
		}
	}

	return filters
}

// CanAllocate applies the require/exclude filters to the candidate node.
func (d *Filter) CanAllocate(shard types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	return d.check(shard, nodeID, alloc)
}

// CanRemain applies the require/exclude filters to the current node, so
// filter changes evict shards from newly excluded nodes on the next pass.
func (d *Filter) CanRemain(shard types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	return d.check(shard, nodeID, alloc)
}

func (d *Filter) check(_ types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	cfg := d.config.Load()
	if len(cfg.require) == 0 && len(cfg.exclude) == 0 {
		return types.NewDecision(types.DecisionYes, filterName, "no allocation filters configured")
	}

	node, ok := alloc.Members().Get(nodeID)
	if !ok {
		return types.NewDecision(types.DecisionNo, filterName, "node [%s] is not part of the cluster", nodeID)
	}

	for attr, values := range cfg.require {
		nodeValue, ok := node.Attribute(attr)
		if !ok || !contains(values, nodeValue) {
			return types.NewDecision(types.DecisionNo, filterName,
				"node [%s] does not match required filter [%s:%s]", nodeID, attr, strings.Join(values, ","))
		}
	}

	for attr, values := range cfg.exclude {
		if nodeValue, ok := node.Attribute(attr); ok && contains(values, nodeValue) {
			return types.NewDecision(types.DecisionNo, filterName,
				"node [%s] matches excluded filter [%s:%s]", nodeID, attr, nodeValue)
		}
	}

	return types.NewDecision(types.DecisionYes, filterName, "node [%s] matches all allocation filters", nodeID)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}

	return false
}
