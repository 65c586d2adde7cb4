package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/decider"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/master"
	"github.com/arloliu/shardalloc/types"
	"github.com/stretchr/testify/require"
)

func testState(shards ...types.ShardRouting) types.ClusterState {
	return types.ClusterState{
		ClusterName: "test-cluster",
		Version:     1,
		Nodes: types.DiscoveryNodes{Nodes: map[string]types.DiscoveryNode{
			"node-1": {ID: "node-1", Name: "node-1"},
			"node-2": {ID: "node-2", Name: "node-2"},
		}},
		RoutingTable: types.NewRoutingTable(shards),
		Metadata: types.Metadata{
			Indices: map[string]types.IndexMetadata{
				"logs": {Name: "logs", UUID: "uuid-logs", NumberOfShards: 1, NumberOfReplicas: 1},
			},
		},
	}
}

func logsShard(id int) types.ShardID {
	return types.ShardID{Index: "logs", ID: id}
}

func newAllocService(t *testing.T) *allocation.Service {
	t.Helper()

	return allocation.NewService(
		allocation.NewDeciders(decider.NewSameNode(), decider.NewThrottle(nil, nil)),
		logger.NewTest(t),
		nil,
	)
}

// statefulPublisher records every published version.
type statefulPublisher struct {
	mu       sync.Mutex
	versions []int64
}

func (p *statefulPublisher) publish(_ context.Context, state types.ClusterState) error {
	p.mu.Lock()
	p.versions = append(p.versions, state.Version)
	p.mu.Unlock()

	return nil
}

func (p *statefulPublisher) published() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int64, len(p.versions))
	copy(out, p.versions)

	return out
}

func waitDone(t *testing.T, submit func(done func(error)) error) {
	t.Helper()

	ch := make(chan error, 1)
	require.NoError(t, submit(func(err error) { ch <- err }))

	select {
	case err := <-ch:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task completion")
	}
}

func TestService_ShardLifecycleThroughPipeline(t *testing.T) {
	pub := &statefulPublisher{}
	state := testState(
		types.ShardRouting{Shard: logsShard(0), Primary: true, State: types.ShardUnassigned},
		types.ShardRouting{Shard: logsShard(0), State: types.ShardUnassigned},
	)

	pipeline := master.NewPipeline(state, pub.publish, logger.NewTest(t), nil)
	svc := NewService(newAllocService(t), pipeline, logger.NewTest(t))
	pipeline.OnPublished = svc.HandleStatePublished

	require.NoError(t, pipeline.Start(context.Background()))
	defer func() { require.NoError(t, pipeline.Stop()) }()

	// Initial reroute assigns both copies.
	require.NoError(t, svc.Reroute("cluster bootstrap"))

	require.Eventually(t, func() bool {
		table := pipeline.State().RoutingTable

		return !table.HasUnassigned()
	}, 5*time.Second, 10*time.Millisecond)

	// Both copies report started; the table converges to all-active.
	for _, r := range pipeline.State().RoutingTable.Shards {
		waitDone(t, func(done func(error)) error {
			return svc.SubmitShardStarted(types.ShardEntry{
				Routing:   r,
				IndexUUID: "uuid-logs",
			}, done)
		})
	}

	require.Eventually(t, func() bool {
		return !pipeline.State().RoutingTable.HasInactive()
	}, 5*time.Second, 10*time.Millisecond)

	// Failing the primary detaches it, promotes the replica, and the
	// follow-up reroute re-assigns the failed copy automatically.
	var primary types.ShardRouting
	for _, r := range pipeline.State().RoutingTable.Shards {
		if r.Primary {
			primary = r
		}
	}

	waitDone(t, func(done func(error)) error {
		return svc.SubmitShardFailed(types.ShardEntry{
			Routing:   primary,
			IndexUUID: "uuid-logs",
			Message:   "node crashed",
			Failure:   "io error",
		}, done)
	})

	require.Eventually(t, func() bool {
		table := pipeline.State().RoutingTable
		if table.HasUnassigned() {
			return false
		}
		for _, r := range table.Shards {
			if r.Primary && !r.Active() {
				return false
			}
		}

		return true
	}, 5*time.Second, 10*time.Millisecond)

	// Every published version is distinct and increasing.
	versions := pub.published()
	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		require.Greater(t, versions[i], versions[i-1])
	}
}

func TestService_ConvergedStateStopsRerouting(t *testing.T) {
	state := testState(
		types.ShardRouting{Shard: logsShard(0), Primary: true, CurrentNodeID: "node-1", State: types.ShardStarted},
		types.ShardRouting{Shard: logsShard(0), CurrentNodeID: "node-2", State: types.ShardStarted},
	)

	pub := &statefulPublisher{}
	pipeline := master.NewPipeline(state, pub.publish, logger.NewTest(t), nil)
	svc := NewService(newAllocService(t), pipeline, logger.NewTest(t))
	pipeline.OnPublished = svc.HandleStatePublished

	require.NoError(t, pipeline.Start(context.Background()))
	defer func() { require.NoError(t, pipeline.Stop()) }()

	require.NoError(t, svc.Reroute("manual"))

	// A reroute over a balanced, fully active table changes nothing and
	// publishes nothing.
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, pub.published())
	require.Equal(t, int64(1), pipeline.State().Version)
}
