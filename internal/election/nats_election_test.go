package election

import (
	"testing"

	"github.com/stretchr/testify/require"

	shardtest "github.com/arloliu/shardalloc/testing"
)

func TestNATSElection_RequestMastership(t *testing.T) {
	t.Run("acquires the role when no master exists", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-election-1")

		agent := NewNATSElection(kv, "master")

		isMaster, err := agent.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)
		require.Equal(t, "node-1", agent.NodeID())
	})

	t.Run("fails when another node is master", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-election-2")

		agent1 := NewNATSElection(kv, "master")
		isMaster, err := agent1.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)

		agent2 := NewNATSElection(kv, "master")
		isMaster, err = agent2.RequestMastership(ctx, "node-2", 30)
		require.NoError(t, err)
		require.False(t, isMaster)
	})

	t.Run("renews the role if already master", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-election-3")

		agent := NewNATSElection(kv, "master")

		isMaster, err := agent.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)

		isMaster, err = agent.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)
	})

	t.Run("returns error for invalid lease duration", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-election-4")

		agent := NewNATSElection(kv, "master")

		isMaster, err := agent.RequestMastership(ctx, "node-1", 0)
		require.ErrorIs(t, err, ErrInvalidDuration)
		require.False(t, isMaster)
	})
}

func TestNATSElection_RenewMastership(t *testing.T) {
	t.Run("renews while holding the role", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-renew-1")

		agent := NewNATSElection(kv, "master")

		isMaster, err := agent.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)

		require.NoError(t, agent.RenewMastership(ctx))
	})

	t.Run("fails when not master", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-renew-2")

		agent := NewNATSElection(kv, "master")
		require.ErrorIs(t, agent.RenewMastership(ctx), ErrNotMaster)
	})

	t.Run("fails when the key was taken over", func(t *testing.T) {
		ctx := t.Context()

		_, nc := shardtest.StartEmbeddedNATS(t)
		kv := shardtest.CreateJetStreamKV(t, nc, "test-renew-3")

		agent1 := NewNATSElection(kv, "master")
		isMaster, err := agent1.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)

		// Simulate lease expiry plus takeover by another node.
		require.NoError(t, kv.Delete(ctx, "master"))
		agent2 := NewNATSElection(kv, "master")
		isMaster, err = agent2.RequestMastership(ctx, "node-2", 30)
		require.NoError(t, err)
		require.True(t, isMaster)

		require.ErrorIs(t, agent1.RenewMastership(ctx), ErrMastershipLost)
	})
}

func TestNATSElection_ReleaseMastership(t *testing.T) {
	ctx := t.Context()

	_, nc := shardtest.StartEmbeddedNATS(t)
	kv := shardtest.CreateJetStreamKV(t, nc, "test-release-1")

	agent := NewNATSElection(kv, "master")

	t.Run("fails when not master", func(t *testing.T) {
		require.ErrorIs(t, agent.ReleaseMastership(ctx), ErrNotMaster)
	})

	t.Run("releases and allows takeover", func(t *testing.T) {
		isMaster, err := agent.RequestMastership(ctx, "node-1", 30)
		require.NoError(t, err)
		require.True(t, isMaster)

		require.NoError(t, agent.ReleaseMastership(ctx))

		other := NewNATSElection(kv, "master")
		isMaster, err = other.RequestMastership(ctx, "node-2", 30)
		require.NoError(t, err)
		require.True(t, isMaster)
	})
}

func TestNATSElection_IsMaster(t *testing.T) {
	ctx := t.Context()

	_, nc := shardtest.StartEmbeddedNATS(t)
	kv := shardtest.CreateJetStreamKV(t, nc, "test-ismaster-1")

	agent := NewNATSElection(kv, "master")

	isMaster, err := agent.IsMaster(ctx)
	require.NoError(t, err)
	require.False(t, isMaster)

	acquired, err := agent.RequestMastership(ctx, "node-1", 30)
	require.NoError(t, err)
	require.True(t, acquired)

	isMaster, err = agent.IsMaster(ctx)
	require.NoError(t, err)
	require.True(t, isMaster)

	// Deleting the key behind our back demotes us on the next check.
	require.NoError(t, kv.Delete(ctx, "master"))
	isMaster, err = agent.IsMaster(ctx)
	require.NoError(t, err)
	require.False(t, isMaster)
}

func TestNATSElection_CurrentMaster(t *testing.T) {
	ctx := t.Context()

	_, nc := shardtest.StartEmbeddedNATS(t)
	kv := shardtest.CreateJetStreamKV(t, nc, "test-current-1")

	agent := NewNATSElection(kv, "master")

	current, err := agent.CurrentMaster(ctx)
	require.NoError(t, err)
	require.Empty(t, current)

	acquired, err := agent.RequestMastership(ctx, "node-1", 30)
	require.NoError(t, err)
	require.True(t, acquired)

	// Any agent over the same bucket resolves the master, including ones
	// that never requested the role.
	observer := NewNATSElection(kv, "master")
	current, err = observer.CurrentMaster(ctx)
	require.NoError(t, err)
	require.Equal(t, "node-1", current)
}
