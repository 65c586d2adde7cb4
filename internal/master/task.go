package master

import (
	"github.com/arloliu/shardalloc/types"
)

// Priority orders queued cluster-state tasks.
//
// Higher priorities drain first. Within one priority, tasks drain in
// submission order.
type Priority int

const (
	// PriorityNormal is for routine work such as reroute passes.
	PriorityNormal Priority = iota

	// PriorityHigh is for shard failure handling.
	PriorityHigh

	// PriorityUrgent is for shard-started reports, which unblock recovery
	// progress and should never queue behind routine work.
	PriorityUrgent
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Executor computes a new cluster state from a batch of tasks.
//
// Tasks submitted with the same executor are coalesced into one Execute
// call per drain cycle. Execute must treat the input state as immutable
// and either return a new state or the input unchanged.
//
// Execute runs on the single pipeline drain goroutine; implementations
// need no internal locking for pipeline-owned data.
type Executor interface {
	// Name returns the executor label used in logs and metrics.
	Name() string

	// Execute applies the batch to the given state.
	//
	// Parameters:
	//   - state: Current immutable cluster state
	//   - tasks: All tasks coalesced into this batch, in priority order
	//
	// Returns:
	//   - types.ClusterState: New state (or the input if nothing changed)
	//   - error: Batch failure; the whole batch is rejected and the state
	//     remains unchanged
	Execute(state types.ClusterState, tasks []*Task) (types.ClusterState, error)
}

// Task is one queued cluster-state update request.
type Task struct {
	// Executor applies this task. Required.
	Executor Executor

	// Priority selects the drain order. Defaults to PriorityNormal.
	Priority Priority

	// Entry carries the shard-state payload for shard report executors.
	// Unused by other executors.
	Entry types.ShardEntry

	// Reason describes the trigger for logging.
	Reason string

	// Done, if set, is invoked exactly once with the batch outcome: nil
	// when the batch applied (and published, if the state changed), the
	// batch error otherwise. It runs on the drain goroutine and must not
	// block.
	Done func(err error)
}

// complete invokes the Done callback when one is set.
func (t *Task) complete(err error) {
	if t.Done != nil {
		t.Done(err)
	}
}
