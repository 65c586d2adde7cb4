package routing

import (
	"fmt"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/master"
	"github.com/arloliu/shardalloc/types"
)

// Service connects the allocation engine to the master task pipeline.
//
// It owns the three executors that mutate the routing table: shard-started
// batches, shard-failed batches, and reroute passes. Reports submit as
// pipeline tasks; the pipeline's drain goroutine coalesces them and runs
// one allocation pass per batch.
type Service struct {
	alloc    *allocation.Service
	pipeline *master.Pipeline
	logger   types.Logger

	startedExec *shardStartedExecutor
	failedExec  *shardFailedExecutor
	rerouteExec *rerouteExecutor
}

// NewService creates a routing service over the given allocation engine
// and pipeline.
//
// Parameters:
//   - alloc: Allocation engine (required)
//   - pipeline: Master task pipeline (required)
//   - log: Logger (nil for no-op)
//
// Returns:
//   - *Service: Initialized routing service
func NewService(alloc *allocation.Service, pipeline *master.Pipeline, log types.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}

	return &Service{
		alloc:       alloc,
		pipeline:    pipeline,
		logger:      log,
		startedExec: &shardStartedExecutor{alloc: alloc},
		failedExec:  &shardFailedExecutor{alloc: alloc},
		rerouteExec: &rerouteExecutor{alloc: alloc},
	}
}

// Reroute schedules a decider-driven allocation pass.
//
// The pass runs at normal priority behind any pending shard reports, so a
// reroute triggered by a state change always sees that change applied.
//
// Parameters:
//   - reason: Human-readable trigger description
//
// Returns:
//   - error: Pipeline submission error
func (s *Service) Reroute(reason string) error {
	return s.pipeline.Submit(&master.Task{
		Executor: s.rerouteExec,
		Priority: master.PriorityNormal,
		Reason:   reason,
	})
}

// SubmitShardStarted enqueues one shard-started report at urgent priority.
//
// Parameters:
//   - entry: The report
//   - done: Optional completion callback (runs on the drain goroutine)
//
// Returns:
//   - error: Pipeline submission error
func (s *Service) SubmitShardStarted(entry types.ShardEntry, done func(error)) error {
	return s.pipeline.Submit(&master.Task{
		Executor: s.startedExec,
		Priority: master.PriorityUrgent,
		Entry:    entry,
		Reason:   "shard started",
		Done:     done,
	})
}

// SubmitShardFailed enqueues one shard-failed report at high priority.
//
// Parameters:
//   - entry: The report
//   - done: Optional completion callback (runs on the drain goroutine)
//
// Returns:
//   - error: Pipeline submission error
func (s *Service) SubmitShardFailed(entry types.ShardEntry, done func(error)) error {
	return s.pipeline.Submit(&master.Task{
		Executor: s.failedExec,
		Priority: master.PriorityHigh,
		Entry:    entry,
		Reason:   "shard failed",
		Done:     done,
	})
}

// HandleStatePublished reacts to a freshly published cluster state.
//
// Wire it to the pipeline's OnPublished callback. A state that still has
// unassigned or inactive copies schedules a follow-up reroute; a converged
// state schedules nothing, which terminates the publish/reroute cycle.
func (s *Service) HandleStatePublished(_, updated types.ClusterState) {
	if !updated.RoutingTable.HasUnassigned() && !updated.RoutingTable.HasInactive() {
		return
	}

	reason := fmt.Sprintf("cluster state version %d applied, %d shards unassigned",
		updated.Version, len(updated.RoutingTable.Unassigned()))
	if err := s.Reroute(reason); err != nil {
		s.logger.Warn("failed to schedule follow-up reroute", "reason", reason, "error", err)
	}
}

// shardStartedExecutor applies a batch of shard-started reports.
type shardStartedExecutor struct {
	alloc *allocation.Service
}

func (e *shardStartedExecutor) Name() string { return "shard-started" }

func (e *shardStartedExecutor) Execute(state types.ClusterState, tasks []*master.Task) (types.ClusterState, error) {
	next, _ := e.alloc.ApplyStartedShards(state, entriesOf(tasks))

	return next, nil
}

// shardFailedExecutor applies a batch of shard-failed reports.
type shardFailedExecutor struct {
	alloc *allocation.Service
}

func (e *shardFailedExecutor) Name() string { return "shard-failed" }

func (e *shardFailedExecutor) Execute(state types.ClusterState, tasks []*master.Task) (types.ClusterState, error) {
	next, _ := e.alloc.ApplyFailedShards(state, entriesOf(tasks))

	return next, nil
}

// rerouteExecutor runs one allocation pass. A batch of coalesced reroute
// tasks collapses into a single pass under the first task's reason.
type rerouteExecutor struct {
	alloc *allocation.Service
}

func (e *rerouteExecutor) Name() string { return "reroute" }

func (e *rerouteExecutor) Execute(state types.ClusterState, tasks []*master.Task) (types.ClusterState, error) {
	reason := "reroute"
	if len(tasks) > 0 && tasks[0].Reason != "" {
		reason = tasks[0].Reason
	}

	next, _ := e.alloc.Reroute(state, reason)

	return next, nil
}

func entriesOf(tasks []*master.Task) []types.ShardEntry {
	entries := make([]types.ShardEntry, 0, len(tasks))
	for _, task := range tasks {
		entries = append(entries, task.Entry)
	}

	return entries
}
