// Package settings provides the process-wide dynamic cluster settings
// store.
//
// Settings are held as an immutable snapshot behind an atomic pointer.
// Readers always observe a fully-formed snapshot: updates build a new map
// and swap it by reference, so a reader during an in-flight allocation pass
// sees either wholly the old or wholly the new values, never a torn read.
// Registered update consumers are notified synchronously after each swap.
package settings

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Well-known dynamic setting keys.
const (
	// KeyAllowRebalance selects the cluster rebalance policy.
	KeyAllowRebalance = "cluster.routing.allocation.allow_rebalance"

	// KeyAwarenessAttributes is the comma-separated ordered list of
	// awareness attribute names.
	KeyAwarenessAttributes = "cluster.routing.allocation.awareness.attributes"

	// KeyAwarenessForcePrefix prefixes per-attribute forced value lists:
	// "cluster.routing.allocation.awareness.force.<attr>.values".
	KeyAwarenessForcePrefix = "cluster.routing.allocation.awareness.force."

	// KeyConcurrentRecoveries caps concurrent incoming recoveries per node.
	KeyConcurrentRecoveries = "cluster.routing.allocation.node_concurrent_recoveries"

	// KeyRequirePrefix prefixes required node-attribute filters:
	// "cluster.routing.allocation.require.<attr>".
	KeyRequirePrefix = "cluster.routing.allocation.require."

	// KeyExcludePrefix prefixes excluded node-attribute filters:
	// "cluster.routing.allocation.exclude.<attr>".
	KeyExcludePrefix = "cluster.routing.allocation.exclude."
)

// UpdateConsumer is notified after a settings update has been applied.
// The map passed to the consumer is the full new snapshot and must not be
// mutated.
type UpdateConsumer func(updated map[string]string)

// Settings is an observable store of dynamic cluster settings.
//
// The zero value is not usable; create instances with New.
type Settings struct {
	current atomic.Pointer[map[string]string]

	mu        sync.Mutex // serializes writers and consumer registration
	consumers []UpdateConsumer
}

// New creates a settings store seeded with the given values.
//
// Parameters:
//   - initial: Initial key/value pairs (may be nil)
//
// Returns:
//   - *Settings: Initialized settings store
func New(initial map[string]string) *Settings {
	snapshot := make(map[string]string, len(initial))
	for k, v := range initial {
		snapshot[k] = v
	}

	s := &Settings{}
	s.current.Store(&snapshot)

	return s
}

// Get returns the value of the given key, or "" when unset.
func (s *Settings) Get(key string) string {
	return (*s.current.Load())[key]
}

// GetDefault returns the value of the given key, or def when unset.
func (s *Settings) GetDefault(key, def string) string {
	if v, ok := (*s.current.Load())[key]; ok && v != "" {
		return v
	}

	return def
}

// GetList returns the comma-separated value of the given key as a trimmed
// slice, or nil when unset.
func (s *Settings) GetList(key string) []string {
	raw := s.Get(key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}

// WithPrefix returns all set keys sharing the given prefix, stripped of the
// prefix, in sorted key order.
func (s *Settings) WithPrefix(prefix string) map[string]string {
	snapshot := *s.current.Load()
	matched := make(map[string]string)
	for k, v := range snapshot {
		if strings.HasPrefix(k, prefix) {
			matched[strings.TrimPrefix(k, prefix)] = v
		}
	}

	return matched
}

// Snapshot returns a copy of all current settings.
func (s *Settings) Snapshot() map[string]string {
	snapshot := *s.current.Load()
	out := make(map[string]string, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}

	return out
}

// Apply merges the given updates into the current snapshot, swaps the new
// snapshot in atomically, and notifies registered consumers.
//
// A value of "" removes the key. Consumers run synchronously on the
// caller's goroutine, in registration order.
//
// Parameters:
//   - updates: Key/value pairs to merge
func (s *Settings) Apply(updates map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.current.Load()
	next := make(map[string]string, len(old)+len(updates))
	for k, v := range old {
		next[k] = v
	}
	for k, v := range updates {
		if v == "" {
			delete(next, k)

			continue
		}
		next[k] = v
	}

	s.current.Store(&next)

	for _, consumer := range s.consumers {
		consumer(next)
	}
}

// OnUpdate registers a consumer notified after every applied update.
//
// Registration order is notification order. The consumer is also invoked
// once immediately with the current snapshot so deciders can initialize
// from whatever was configured before they registered.
func (s *Settings) OnUpdate(consumer UpdateConsumer) {
	s.mu.Lock()
	s.consumers = append(s.consumers, consumer)
	snapshot := *s.current.Load()
	s.mu.Unlock()

	consumer(snapshot)
}

// FromYAML parses a YAML document into a flat settings map.
//
// Nested mappings flatten into dot-joined keys, scalars render with %v, and
// sequences join into comma-separated lists, matching GetList.
//
// Parameters:
//   - data: YAML document bytes
//
// Returns:
//   - map[string]string: Flattened key/value pairs
//   - error: YAML parse error
func FromYAML(data []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings yaml: %w", err)
	}

	flat := make(map[string]string)
	flatten("", doc, flat)

	return flat, nil
}

func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, v[k], out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		out[prefix] = strings.Join(parts, ",")
	default:
		out[prefix] = fmt.Sprintf("%v", v)
	}
}
