package shardalloc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeID = "node-1"
	SetDefaults(&cfg)

	require.NoError(t, cfg.Validate())
	require.Equal(t, "shardalloc", cfg.ClusterName)
	require.Equal(t, "shardalloc", cfg.SubjectPrefix)
	require.Equal(t, 10*time.Second, cfg.MasterLeaseTTL)
	require.Equal(t, "shardalloc-election", cfg.KVBuckets.ElectionBucket)
	require.Equal(t, "shardalloc-state", cfg.KVBuckets.StateBucket)
}

func TestSetDefaults(t *testing.T) {
	t.Run("fills zero values", func(t *testing.T) {
		cfg := Config{NodeID: "node-1"}
		SetDefaults(&cfg)

		require.Equal(t, "node-1", cfg.NodeName)
		require.Equal(t, "shardalloc", cfg.ClusterName)
		require.Equal(t, 10*time.Second, cfg.MasterLeaseTTL)
		require.Equal(t, cfg.MasterLeaseTTL/3, cfg.MasterRenewInterval)
		require.Equal(t, 2*time.Second, cfg.ElectionRetryInterval)
		require.Equal(t, 10*time.Second, cfg.OperationTimeout)
		require.NoError(t, cfg.Validate())
	})

	t.Run("renew interval derived from custom lease", func(t *testing.T) {
		cfg := Config{NodeID: "node-1", MasterLeaseTTL: 30 * time.Second}
		SetDefaults(&cfg)

		require.Equal(t, 10*time.Second, cfg.MasterRenewInterval)
	})

	t.Run("preserves explicit values", func(t *testing.T) {
		cfg := Config{
			NodeID:         "node-1",
			NodeName:       "first",
			ClusterName:    "prod",
			SubjectPrefix:  "prod-alloc",
			MasterLeaseTTL: 20 * time.Second,
		}
		SetDefaults(&cfg)

		require.Equal(t, "first", cfg.NodeName)
		require.Equal(t, "prod", cfg.ClusterName)
		require.Equal(t, "prod-alloc", cfg.SubjectPrefix)
		require.Equal(t, 20*time.Second, cfg.MasterLeaseTTL)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.NodeID = "node-1"
		SetDefaults(&cfg)

		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("empty node id", func(t *testing.T) {
		cfg := valid()
		cfg.NodeID = ""
		require.ErrorContains(t, cfg.Validate(), "NodeID")
	})

	t.Run("wildcard in subject prefix", func(t *testing.T) {
		cfg := valid()
		cfg.SubjectPrefix = "alloc.>"
		require.ErrorContains(t, cfg.Validate(), "SubjectPrefix")
	})

	t.Run("lease too short for renewal", func(t *testing.T) {
		cfg := valid()
		cfg.MasterLeaseTTL = 5 * time.Second
		cfg.MasterRenewInterval = 4 * time.Second
		require.ErrorContains(t, cfg.Validate(), "MasterLeaseTTL")
	})

	t.Run("zero election retry interval", func(t *testing.T) {
		cfg := valid()
		cfg.ElectionRetryInterval = 0
		require.ErrorContains(t, cfg.Validate(), "ElectionRetryInterval")
	})

	t.Run("election retry slower than lease", func(t *testing.T) {
		cfg := valid()
		cfg.ElectionRetryInterval = cfg.MasterLeaseTTL + time.Second
		require.ErrorContains(t, cfg.Validate(), "ElectionRetryInterval")
	})

	t.Run("zero operation timeout", func(t *testing.T) {
		cfg := valid()
		cfg.OperationTimeout = 0
		require.ErrorContains(t, cfg.Validate(), "OperationTimeout")
	})

	t.Run("bucket collision", func(t *testing.T) {
		cfg := valid()
		cfg.KVBuckets.StateBucket = cfg.KVBuckets.ElectionBucket
		require.ErrorContains(t, cfg.Validate(), "must differ")
	})
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	cfg.NodeID = "test-node"
	SetDefaults(&cfg)

	require.NoError(t, cfg.Validate())

	defaults := DefaultConfig()
	require.Less(t, cfg.MasterLeaseTTL, defaults.MasterLeaseTTL)
	require.Less(t, cfg.ElectionRetryInterval, defaults.ElectionRetryInterval)
	require.Less(t, cfg.ShutdownTimeout, defaults.ShutdownTimeout)
}
