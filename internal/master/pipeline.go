package master

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/metrics"
	"github.com/arloliu/shardalloc/types"
)

// Common errors for pipeline operations.
var (
	ErrNotStarted     = errors.New("pipeline not started")
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrNilExecutor    = errors.New("task has no executor")
)

// PublishFunc makes a newly computed cluster state visible to the rest of
// the cluster. A nil PublishFunc keeps states local to the pipeline.
type PublishFunc func(ctx context.Context, state types.ClusterState) error

// Pipeline serializes all master-side cluster-state updates through a
// single drain goroutine.
//
// Submitted tasks queue per priority. Each drain cycle takes everything
// queued, orders it urgent, high, normal (FIFO within a priority), groups
// it by executor, and applies one Execute call per group over the current
// state. Batches are atomic: an executor or publish error rejects the
// whole batch and leaves the state untouched.
//
// Because a single goroutine owns all state mutation, executors and the
// OnPublished callback run free of data races without locking.
type Pipeline struct {
	logger  types.Logger
	metrics types.PipelineMetrics
	publish PublishFunc

	// OnPublished, if set, runs on the drain goroutine after every
	// successfully published state. Set it before Start.
	OnPublished func(old, updated types.ClusterState)

	mu      sync.Mutex
	queues  [PriorityUrgent + 1][]*Task
	state   types.ClusterState
	started bool

	notifyCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewPipeline creates a pipeline seeded with the given state.
//
// Parameters:
//   - initial: State the first batch applies against
//   - publish: State publication callback (nil to keep states local)
//   - log: Logger (nil for no-op)
//   - collector: Pipeline metrics (nil for no-op)
//
// Returns:
//   - *Pipeline: Initialized pipeline, not yet started
func NewPipeline(initial types.ClusterState, publish PublishFunc, log types.Logger, collector types.PipelineMetrics) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	if collector == nil {
		collector = metrics.NewNop()
	}

	return &Pipeline{
		logger:   log,
		metrics:  collector,
		publish:  publish,
		state:    initial,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the drain goroutine.
//
// Returns:
//   - error: ErrAlreadyStarted if already running
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	go p.drainLoop(ctx)

	return nil
}

// Stop stops the drain goroutine and rejects all still-queued tasks with
// ErrNotStarted. Blocks until the goroutine exits.
//
// Returns:
//   - error: ErrNotStarted if not running
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()

		return ErrNotStarted
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()

	<-p.doneCh

	for _, task := range p.takeAll() {
		task.complete(ErrNotStarted)
	}

	return nil
}

// State returns the pipeline's current cluster state.
func (p *Pipeline) State() types.ClusterState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// SetState replaces the pipeline's current state.
//
// Used when a freshly elected master seeds the pipeline from the last
// published state. Must not be called while tasks are in flight.
func (p *Pipeline) SetState(state types.ClusterState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = state
}

// Submit enqueues a task for the next drain cycle.
//
// Parameters:
//   - task: Task to enqueue (Executor required)
//
// Returns:
//   - error: ErrNotStarted if the pipeline is not running, ErrNilExecutor
//     if the task has no executor
func (p *Pipeline) Submit(task *Task) error {
	if task.Executor == nil {
		return ErrNilExecutor
	}

	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()

		return ErrNotStarted
	}
	p.queues[task.Priority] = append(p.queues[task.Priority], task)
	p.mu.Unlock()

	select {
	case p.notifyCh <- struct{}{}:
	default:
	}

	return nil
}

// drainLoop processes queued tasks until stopped.
func (p *Pipeline) drainLoop(ctx context.Context) {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-p.notifyCh:
			p.drainOnce(ctx)
		}
	}
}

// takeAll removes and returns every queued task in priority order,
// submission order within a priority.
func (p *Pipeline) takeAll() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	var tasks []*Task
	for prio := PriorityUrgent; prio >= PriorityNormal; prio-- {
		tasks = append(tasks, p.queues[prio]...)
		p.queues[prio] = nil
	}

	return tasks
}

// drainOnce applies everything queued right now as one or more batches.
func (p *Pipeline) drainOnce(ctx context.Context) {
	tasks := p.takeAll()
	if len(tasks) == 0 {
		return
	}

	// Group by executor, preserving the priority order of each group's
	// first task.
	var order []Executor
	batches := make(map[Executor][]*Task)
	for _, task := range tasks {
		if _, ok := batches[task.Executor]; !ok {
			order = append(order, task.Executor)
		}
		batches[task.Executor] = append(batches[task.Executor], task)
	}

	for _, exec := range order {
		p.runBatch(ctx, exec, batches[exec])
	}
}

// runBatch applies one executor batch atomically: the state advances and
// publishes as a whole, or not at all.
func (p *Pipeline) runBatch(ctx context.Context, exec Executor, batch []*Task) {
	current := p.State()

	next, err := exec.Execute(current, batch)
	if err != nil {
		p.metrics.RecordBatch(exec.Name(), len(batch), false)
		p.logger.Error("task batch failed",
			"executor", exec.Name(),
			"tasks", len(batch),
			"error", err,
		)
		for _, task := range batch {
			task.complete(err)
		}

		return
	}

	if next.Version == current.Version {
		// Nothing changed; the batch still succeeded.
		p.metrics.RecordBatch(exec.Name(), len(batch), true)
		for _, task := range batch {
			task.complete(nil)
		}

		return
	}

	if p.publish != nil {
		start := time.Now()
		if err := p.publish(ctx, next); err != nil {
			p.metrics.RecordBatch(exec.Name(), len(batch), false)
			p.logger.Error("cluster state publish failed, discarding batch",
				"executor", exec.Name(),
				"version", next.Version,
				"error", err,
			)
			publishErr := fmt.Errorf("failed to publish cluster state version %d: %w", next.Version, err)
			for _, task := range batch {
				task.complete(publishErr)
			}

			return
		}
		p.metrics.RecordStatePublish(next.Version, time.Since(start).Seconds())
	}

	p.SetState(next)
	p.metrics.RecordBatch(exec.Name(), len(batch), true)
	p.logger.Debug("task batch applied",
		"executor", exec.Name(),
		"tasks", len(batch),
		"version", next.Version,
	)

	for _, task := range batch {
		task.complete(nil)
	}

	if p.OnPublished != nil {
		p.OnPublished(current, next)
	}
}
