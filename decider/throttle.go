package decider

import (
	"strconv"
	"sync/atomic"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/types"
)

const throttleName = "throttle"

// DefaultConcurrentRecoveries is the per-node cap on concurrent incoming
// recoveries applied when the setting is unset or invalid.
const DefaultConcurrentRecoveries = 2

// Throttle defers allocations onto nodes that are already running too many
// concurrent incoming recoveries.
//
// Throttle never vetoes: it returns THROTTLE, meaning "not now, try later
// without penalty", which the scheduler must not treat the same as NO.
type Throttle struct {
	Base

	limit  atomic.Int32
	logger types.Logger
}

// Compile-time assertion that Throttle implements Decider.
var _ allocation.Decider = (*Throttle)(nil)

// NewThrottle creates the recovery-throttle decider bound to the given
// dynamic settings store.
//
// Parameters:
//   - store: Dynamic settings store (nil for the fixed default limit)
//   - log: Logger (nil for no-op)
//
// Returns:
//   - *Throttle: Initialized decider observing setting changes
func NewThrottle(store *settings.Settings, log types.Logger) *Throttle {
	if log == nil {
		log = logger.NewNop()
	}

	d := &Throttle{Base: NewBase(throttleName), logger: log}
	d.limit.Store(DefaultConcurrentRecoveries)

	if store != nil {
		store.OnUpdate(func(updated map[string]string) {
			d.applySetting(updated[settings.KeyConcurrentRecoveries])
		})
	}

	return d
}

func (d *Throttle) applySetting(value string) {
	if value == "" {
		d.limit.Store(DefaultConcurrentRecoveries)

		return
	}

	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		d.logger.Warn("invalid node_concurrent_recoveries setting, keeping default",
			"value", value,
			"default", DefaultConcurrentRecoveries,
		)
		limit = DefaultConcurrentRecoveries
	}

	d.limit.Store(int32(limit)) //nolint:gosec // limit is a small operator-supplied count
}

// Limit returns the currently active per-node recovery cap.
func (d *Throttle) Limit() int {
	return int(d.limit.Load())
}

// CanAllocate returns THROTTLE when the candidate node is already running
// the configured number of concurrent incoming recoveries.
func (d *Throttle) CanAllocate(_ types.ShardRouting, nodeID string, alloc *allocation.RoutingAllocation) types.Decision {
	limit := d.Limit()
	current := alloc.Nodes().NumInitializing(nodeID)
	if current >= limit {
		return types.NewDecision(types.DecisionThrottle, throttleName,
			"node [%s] is running [%d] concurrent recoveries, limit [%d]", nodeID, current, limit)
	}

	return types.NewDecision(types.DecisionYes, throttleName,
		"node [%s] is below the concurrent recovery limit", nodeID)
}
