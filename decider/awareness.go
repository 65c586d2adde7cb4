package decider

import (
	"sync/atomic"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/types"
)

const awarenessName = "awareness"

// awarenessConfig is one immutable parse of the awareness settings.
//
// The whole config swaps atomically on settings updates so an allocation
// pass in flight reads either wholly the old or wholly the new values.
type awarenessConfig struct {
	attributes []string
	forced     map[string][]string
}

// Awareness enforces even distribution of a shard's copies across values
// of one or more awareness attributes (e.g. rack, zone).
//
// "Forced" attribute value sets are treated as present even if no node
// currently reports them, so replicas are not over-concentrated while a
// zone is down.
//
// The decider performs no mutation; it is purely advisory and safely
// callable repeatedly with no side effects.
type Awareness struct {
	Base

	config atomic.Pointer[awarenessConfig]
	logger types.Logger
}

// Compile-time assertion that Awareness implements Decider.
var _ allocation.Decider = (*Awareness)(nil)

// NewAwareness creates the awareness decider bound to the given dynamic
// settings store.
//
// Parameters:
//   - store: Dynamic settings store (nil disables awareness)
//   - log: Logger (nil for no-op)
//
// Returns:
//   - *Awareness: Initialized decider observing setting changes
func NewAwareness(store *settings.Settings, log types.Logger) *Awareness {
	if log == nil {
		log = logger.NewNop()
	}

	d := &Awareness{Base: NewBase(awarenessName), logger: log}
	d.config.Store(&awarenessConfig{})

	if store != nil {
		store.OnUpdate(func(map[string]string) {
			d.applySettings(store)
		})
	}

	return d
}

// applySettings re-parses the awareness configuration from the store.
func (d *Awareness) applySettings(store *settings.Settings) {
	cfg := &awarenessConfig{
		attributes: store.GetList(settings.KeyAwarenessAttributes),
		forced:     make(map[string][]string),
	}
	for _, attr := range cfg.attributes {
		if forced := store.GetList(settings.KeyAwarenessForcePrefix + attr + ".values"); len(forced) > 0 {
			cfg.forced[attr] = forced
		}
	}

	d.config.Store(cfg)
	d.logger.Debug("awareness configuration updated",
		"attributes", cfg.attributes,
		"forced", cfg.forced,
	)
}

// Attributes returns the currently configured awareness attribute names.
func (d *Awareness) Attributes() []string {
	return d.config.Load().attributes
}

// CanAllocate evaluates the placement as if the shard had already moved to
// the candidate node.
func (d *Awareness) CanAllocate(shard types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	return d.underCapacity(shard, nodeID, alloc, true)
}

// CanRemain evaluates the shard's current residency on the node.
func (d *Awareness) CanRemain(shard types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	return d.underCapacity(shard, nodeID, alloc, false)
}

// underCapacity checks, for each configured attribute, that the candidate
// node's attribute-value bucket does not exceed its fair share of the
// shard's copies.
//
// With moveToNode set the candidate bucket is hypothetically incremented
// and the shard's current residency (if any) excluded, evaluating the
// placement "as if already moved here".
func (d *Awareness) underCapacity(shard types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation, moveToNode bool) types.Decision {
	cfg := d.config.Load()
	if len(cfg.attributes) == 0 {
		return types.NewDecision(types.DecisionYes, awarenessName, "allocation awareness is not enabled")
	}

	node, ok := alloc.Members().Get(nodeID)
	if !ok {
		return types.NewDecision(types.DecisionNo, awarenessName, "node [%s] is not part of the cluster", nodeID)
	}

	shardCount := alloc.Replicas(shard.Shard.Index) + 1 // primary counted

	for _, attr := range cfg.attributes {
		nodeValue, ok := node.Attribute(attr)
		if !ok {
			return types.NewDecision(types.DecisionNo, awarenessName,
				"node does not contain the awareness attribute [%s]", attr)
		}

		counts := d.bucketCounts(shard, attr, alloc, moveToNode)
		if moveToNode {
			counts[nodeValue]++
		}

		numberOfBuckets := d.numberOfBuckets(attr, cfg, alloc)

		average := shardCount / numberOfBuckets
		remainder := shardCount % numberOfBuckets

		ceiling := average
		if average == 0 {
			// More buckets than copies: exactly one copy per bucket,
			// no leftover bonus.
			ceiling = 1
		} else if remainder > 0 {
			ceiling = average + 1
		}

		if counts[nodeValue] > ceiling {
			return types.NewDecision(types.DecisionNo, awarenessName,
				"too many copies of shard %s in attribute [%s] bucket [%s]: [%d] > ceiling [%d] ([%d] copies over [%d] buckets)",
				shard.Shard, attr, nodeValue, counts[nodeValue], ceiling, shardCount, numberOfBuckets)
		}
	}

	return types.NewDecision(types.DecisionYes, awarenessName, "shard copies are balanced across awareness attributes")
}

// bucketCounts counts the shard's started/initializing copies per
// attribute-value bucket, counting relocation targets instead of sources.
// With excludeSelf the copy being evaluated is skipped so a prospective
// move does not double-count its current residency.
func (d *Awareness) bucketCounts(shard types.ShardRouting, attr string, alloc *allocation.RoutingAllocation, excludeSelf bool) map[string]int {
	counts := make(map[string]int)

	for _, copyRouting := range alloc.Nodes().CopiesOf(shard.Shard) {
		if copyRouting.Unassigned() {
			continue
		}
		if excludeSelf && copyRouting.SameCopy(shard) {
			continue
		}

		owner := copyRouting.CurrentNodeID
		if copyRouting.Relocating() {
			// Relocation targets count, sources do not.
			owner = copyRouting.RelocatingNodeID
		}

		ownerNode, ok := alloc.Members().Get(owner)
		if !ok {
			continue
		}
		if value, ok := ownerNode.Attribute(attr); ok {
			counts[value]++
		}
	}

	return counts
}

// numberOfBuckets returns the number of distinct live attribute values plus
// any forced values not already represented by a live node.
func (d *Awareness) numberOfBuckets(attr string, cfg *awarenessConfig, alloc *allocation.RoutingAllocation) int {
	live := make(map[string]struct{})
	for _, id := range alloc.Members().IDs() {
		node, _ := alloc.Members().Get(id)
		if value, ok := node.Attribute(attr); ok {
			live[value] = struct{}{}
		}
	}

	buckets := len(live)
	for _, forced := range cfg.forced[attr] {
		if _, ok := live[forced]; !ok {
			buckets++
		}
	}

	if buckets == 0 {
		buckets = 1
	}

	return buckets
}
