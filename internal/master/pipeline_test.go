package master

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

// recordingExecutor collects every batch it receives and optionally
// advances the state version or fails.
type recordingExecutor struct {
	name string
	fail error

	mu      sync.Mutex
	batches [][]*Task
}

func (e *recordingExecutor) Name() string { return e.name }

func (e *recordingExecutor) Execute(state types.ClusterState, tasks []*Task) (types.ClusterState, error) {
	e.mu.Lock()
	e.batches = append(e.batches, tasks)
	e.mu.Unlock()

	if e.fail != nil {
		return state, e.fail
	}

	state.Version++

	return state, nil
}

func (e *recordingExecutor) batchSizes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	sizes := make([]int, 0, len(e.batches))
	for _, b := range e.batches {
		sizes = append(sizes, len(b))
	}

	return sizes
}

func initialState() types.ClusterState {
	return types.ClusterState{ClusterName: "test-cluster", Version: 1}
}

// submitAndWait submits tasks in one locked burst and waits for every Done
// callback.
func submitAndWait(t *testing.T, p *Pipeline, tasks ...*Task) []error {
	t.Helper()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make([]error, len(tasks))
	)

	for i, task := range tasks {
		wg.Add(1)
		idx := i
		task.Done = func(err error) {
			mu.Lock()
			errs[idx] = err
			mu.Unlock()
			wg.Done()
		}
		require.NoError(t, p.Submit(task))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task completion")
	}

	return errs
}

func TestPipeline_StartStop(t *testing.T) {
	p := NewPipeline(initialState(), nil, logger.NewTest(t), nil)

	require.ErrorIs(t, p.Stop(), ErrNotStarted)
	require.NoError(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, p.Stop())
	require.ErrorIs(t, p.Submit(&Task{Executor: &recordingExecutor{name: "noop"}}), ErrNotStarted)
}

func TestPipeline_SubmitValidation(t *testing.T) {
	p := NewPipeline(initialState(), nil, logger.NewTest(t), nil)
	require.NoError(t, p.Start(context.Background()))
	defer func() { require.NoError(t, p.Stop()) }()

	require.ErrorIs(t, p.Submit(&Task{}), ErrNilExecutor)
}

func TestPipeline_AppliesAndPublishes(t *testing.T) {
	var (
		publishMu sync.Mutex
		published []int64
	)
	publish := func(_ context.Context, state types.ClusterState) error {
		publishMu.Lock()
		published = append(published, state.Version)
		publishMu.Unlock()

		return nil
	}

	p := NewPipeline(initialState(), publish, logger.NewTest(t), nil)
	require.NoError(t, p.Start(context.Background()))
	defer func() { require.NoError(t, p.Stop()) }()

	exec := &recordingExecutor{name: "bump"}
	errs := submitAndWait(t, p, &Task{Executor: exec, Reason: "first"})
	require.NoError(t, errs[0])

	require.Equal(t, int64(2), p.State().Version)
	publishMu.Lock()
	require.Equal(t, []int64{2}, published)
	publishMu.Unlock()
}

func TestPipeline_BatchAtomicity(t *testing.T) {
	t.Run("executor error rejects the whole batch", func(t *testing.T) {
		execErr := errors.New("executor blew up")
		exec := &recordingExecutor{name: "broken", fail: execErr}

		p := NewPipeline(initialState(), nil, logger.NewTest(t), nil)
		require.NoError(t, p.Start(context.Background()))
		defer func() { require.NoError(t, p.Stop()) }()

		errs := submitAndWait(t, p,
			&Task{Executor: exec, Reason: "one"},
			&Task{Executor: exec, Reason: "two"},
		)

		for _, err := range errs {
			require.ErrorIs(t, err, execErr)
		}
		require.Equal(t, int64(1), p.State().Version)
	})

	t.Run("publish error rejects the batch and keeps the old state", func(t *testing.T) {
		pubErr := errors.New("kv unavailable")
		publish := func(context.Context, types.ClusterState) error { return pubErr }

		p := NewPipeline(initialState(), publish, logger.NewTest(t), nil)
		require.NoError(t, p.Start(context.Background()))
		defer func() { require.NoError(t, p.Stop()) }()

		exec := &recordingExecutor{name: "bump"}
		errs := submitAndWait(t, p, &Task{Executor: exec})
		require.ErrorIs(t, errs[0], pubErr)
		require.Equal(t, int64(1), p.State().Version)
	})
}

func TestPipeline_CoalescesBySameExecutor(t *testing.T) {
	exec := &recordingExecutor{name: "coalesce"}

	p := NewPipeline(initialState(), nil, logger.NewTest(t), nil)

	// Queue before starting the drain goroutine so all three tasks are
	// pending in one cycle.
	p.mu.Lock()
	p.started = true
	for range 3 {
		p.queues[PriorityNormal] = append(p.queues[PriorityNormal], &Task{Executor: exec})
	}
	p.mu.Unlock()
	p.notifyCh <- struct{}{}

	go p.drainLoop(context.Background())
	defer func() { require.NoError(t, p.Stop()) }()

	require.Eventually(t, func() bool {
		sizes := exec.batchSizes()

		return len(sizes) == 1 && sizes[0] == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPipeline_PriorityOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	exec := &orderedExecutor{record: func(reason string) {
		mu.Lock()
		order = append(order, reason)
		mu.Unlock()
	}}

	p := NewPipeline(initialState(), nil, logger.NewTest(t), nil)

	p.mu.Lock()
	p.started = true
	p.queues[PriorityNormal] = append(p.queues[PriorityNormal], &Task{Executor: exec, Priority: PriorityNormal, Reason: "normal"})
	p.queues[PriorityHigh] = append(p.queues[PriorityHigh], &Task{Executor: exec, Priority: PriorityHigh, Reason: "high"})
	p.queues[PriorityUrgent] = append(p.queues[PriorityUrgent], &Task{Executor: exec, Priority: PriorityUrgent, Reason: "urgent"})
	p.mu.Unlock()
	p.notifyCh <- struct{}{}

	go p.drainLoop(context.Background())
	defer func() { require.NoError(t, p.Stop()) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(order) == 3
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"urgent", "high", "normal"}, order)
	mu.Unlock()
}

// orderedExecutor records the reason of every task in batch order.
type orderedExecutor struct {
	record func(reason string)
}

func (e *orderedExecutor) Name() string { return "ordered" }

func (e *orderedExecutor) Execute(state types.ClusterState, tasks []*Task) (types.ClusterState, error) {
	for _, task := range tasks {
		e.record(task.Reason)
	}

	return state, nil
}

func TestPipeline_OnPublished(t *testing.T) {
	var (
		mu       sync.Mutex
		versions [][2]int64
	)

	p := NewPipeline(initialState(), nil, logger.NewTest(t), nil)
	p.OnPublished = func(old, updated types.ClusterState) {
		mu.Lock()
		versions = append(versions, [2]int64{old.Version, updated.Version})
		mu.Unlock()
	}
	require.NoError(t, p.Start(context.Background()))
	defer func() { require.NoError(t, p.Stop()) }()

	exec := &recordingExecutor{name: "bump"}
	errs := submitAndWait(t, p, &Task{Executor: exec})
	require.NoError(t, errs[0])

	mu.Lock()
	require.Equal(t, [][2]int64{{1, 2}}, versions)
	mu.Unlock()
}

func TestPipeline_UnchangedStateSkipsPublish(t *testing.T) {
	published := 0
	publish := func(context.Context, types.ClusterState) error {
		published++

		return nil
	}

	p := NewPipeline(initialState(), publish, logger.NewTest(t), nil)
	require.NoError(t, p.Start(context.Background()))
	defer func() { require.NoError(t, p.Stop()) }()

	exec := &orderedExecutor{record: func(string) {}}
	errs := submitAndWait(t, p, &Task{Executor: exec})
	require.NoError(t, errs[0])
	require.Zero(t, published)
}
