package shardalloc

import (
	"fmt"
	"strings"
	"time"
)

// KVBucketConfig configures NATS JetStream KV bucket names.
type KVBucketConfig struct {
	// ElectionBucket is the bucket name for master election leases.
	ElectionBucket string `yaml:"electionBucket"`

	// StateBucket is the bucket name for published cluster states.
	// States carry no TTL; the latest version must survive master changes.
	StateBucket string `yaml:"stateBucket"`
}

// Config is the configuration for the Coordinator.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h".
type Config struct {
	// NodeID is the unique identifier of this node. Required.
	NodeID string `yaml:"nodeId"`

	// NodeName is the human-readable node name. Defaults to NodeID.
	NodeName string `yaml:"nodeName"`

	// ClusterName identifies the cluster this node belongs to. All nodes
	// of one cluster must agree on it.
	ClusterName string `yaml:"clusterName"`

	// NodeAttributes holds operator-assigned node metadata such as
	// {"zone": "us-east-1a"}. Awareness and filter deciders match
	// against these attributes.
	NodeAttributes map[string]string `yaml:"nodeAttributes"`

	// SubjectPrefix is the NATS subject prefix for shard-state report
	// traffic. All nodes of one cluster must use the same prefix.
	SubjectPrefix string `yaml:"subjectPrefix"`

	// MasterLeaseTTL is how long a master lease remains valid without
	// renewal. Shorter TTLs detect master failure faster but tolerate
	// less renewal jitter.
	// Recommended: 10 seconds.
	MasterLeaseTTL time.Duration `yaml:"masterLeaseTtl"`

	// MasterRenewInterval is how often the elected master renews its
	// lease. Must leave room for at least two renewal attempts per TTL.
	// Recommended: MasterLeaseTTL / 3.
	MasterRenewInterval time.Duration `yaml:"masterRenewInterval"`

	// ElectionRetryInterval is how often a non-master node retries to
	// acquire the lease and re-resolves the current master.
	// Recommended: 2 seconds.
	ElectionRetryInterval time.Duration `yaml:"electionRetryInterval"`

	// OperationTimeout is the timeout for KV operations (get, put, delete).
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// StartupTimeout is the maximum time to wait for the coordinator to
	// fully start. Includes bucket creation, the first election round,
	// and the initial cluster-state sync.
	// Recommended: 30 seconds.
	StartupTimeout time.Duration `yaml:"startupTimeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Includes releasing the master lease and draining the pipeline.
	// Recommended: 10 seconds.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// InitialSettings seeds the dynamic cluster settings, keyed by the
	// flattened setting name, e.g.
	// "cluster.routing.allocation.awareness.attributes": "zone".
	// Settings applied at runtime override these seeds.
	InitialSettings map[string]string `yaml:"initialSettings"`

	// KVBuckets controls NATS JetStream KV bucket configuration.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		ClusterName:           "shardalloc",
		SubjectPrefix:         "shardalloc",
		MasterLeaseTTL:        10 * time.Second,
		MasterRenewInterval:   3 * time.Second,
		ElectionRetryInterval: 2 * time.Second,
		OperationTimeout:      10 * time.Second,
		StartupTimeout:        30 * time.Second,
		ShutdownTimeout:       10 * time.Second,
		KVBuckets: KVBucketConfig{
			ElectionBucket: "shardalloc-election",
			StateBucket:    "shardalloc-state",
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.NodeName == "" {
		cfg.NodeName = cfg.NodeID
	}
	if cfg.ClusterName == "" {
		cfg.ClusterName = defaults.ClusterName
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.MasterLeaseTTL == 0 {
		cfg.MasterLeaseTTL = defaults.MasterLeaseTTL
	}
	if cfg.MasterRenewInterval == 0 {
		// Default: TTL/3 (allows two missed renewals before the lease expires)
		cfg.MasterRenewInterval = cfg.MasterLeaseTTL / 3
	}
	if cfg.ElectionRetryInterval == 0 {
		cfg.ElectionRetryInterval = defaults.ElectionRetryInterval
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.KVBuckets.ElectionBucket == "" {
		cfg.KVBuckets.ElectionBucket = defaults.KVBuckets.ElectionBucket
	}
	if cfg.KVBuckets.StateBucket == "" {
		cfg.KVBuckets.StateBucket = defaults.KVBuckets.StateBucket
	}
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - NodeID is non-empty
//   - SubjectPrefix contains no NATS wildcard or whitespace characters
//   - MasterLeaseTTL >= 2 * MasterRenewInterval (allow one missed renewal)
//   - ElectionRetryInterval > 0 and <= MasterLeaseTTL (re-elect within one lease)
//   - OperationTimeout > 0
//   - ElectionBucket != StateBucket (lease writes must not churn state history)
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	// Rule 1: NodeID is required
	if cfg.NodeID == "" {
		return fmt.Errorf("NodeID must not be empty")
	}

	// Rule 2: SubjectPrefix must form valid NATS subjects
	if strings.ContainsAny(cfg.SubjectPrefix, "*> \t") {
		return fmt.Errorf("SubjectPrefix (%q) must not contain NATS wildcards or whitespace", cfg.SubjectPrefix)
	}

	// Rule 3: Lease renewal headroom
	if cfg.MasterLeaseTTL < 2*cfg.MasterRenewInterval {
		return fmt.Errorf(
			"MasterLeaseTTL (%v) must be >= 2*MasterRenewInterval (%v) to allow one missed renewal",
			cfg.MasterLeaseTTL, cfg.MasterRenewInterval,
		)
	}

	// Rule 4: Election retry cadence
	if cfg.ElectionRetryInterval <= 0 {
		return fmt.Errorf("ElectionRetryInterval must be > 0, got %v", cfg.ElectionRetryInterval)
	}

	if cfg.ElectionRetryInterval > cfg.MasterLeaseTTL {
		return fmt.Errorf(
			"ElectionRetryInterval (%v) must be <= MasterLeaseTTL (%v) so a successor is elected within one lease",
			cfg.ElectionRetryInterval, cfg.MasterLeaseTTL,
		)
	}

	// Rule 5: Operation timeout sanity
	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}

	// Rule 6: Bucket separation
	if cfg.KVBuckets.ElectionBucket == cfg.KVBuckets.StateBucket {
		return fmt.Errorf(
			"ElectionBucket and StateBucket must differ, both are %q",
			cfg.KVBuckets.ElectionBucket,
		)
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for non-recommended values.
//
// This is called after Validate() in NewCoordinator() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	// Warn if the lease leaves less than the recommended renewal headroom
	if cfg.MasterLeaseTTL < 3*cfg.MasterRenewInterval {
		logger.Warn(
			"MasterLeaseTTL is below recommended minimum",
			"masterLeaseTTL", cfg.MasterLeaseTTL,
			"masterRenewInterval", cfg.MasterRenewInterval,
			"recommended", 3*cfg.MasterRenewInterval,
		)
	}

	// Warn if the election retry cadence is very short
	if cfg.ElectionRetryInterval < 500*time.Millisecond {
		logger.Warn(
			"ElectionRetryInterval is very short, may cause heavy KV traffic",
			"electionRetryInterval", cfg.ElectionRetryInterval,
			"recommended", "2s or higher",
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-100x faster than production defaults to enable
// rapid iteration without sacrificing test coverage. Use DefaultConfig()
// for production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := shardalloc.TestConfig()
//	cfg.NodeID = "test-node-1"
//	coord, err := shardalloc.NewCoordinator(&cfg, nc)
func TestConfig() Config {
	cfg := DefaultConfig()

	// Fast timings for test execution (10-100x faster)
	cfg.MasterLeaseTTL = 2 * time.Second               // 5x faster
	cfg.MasterRenewInterval = 500 * time.Millisecond   // 6x faster
	cfg.ElectionRetryInterval = 100 * time.Millisecond // 20x faster
	cfg.OperationTimeout = 5 * time.Second             // 2x faster
	cfg.StartupTimeout = 10 * time.Second              // 3x faster
	cfg.ShutdownTimeout = 3 * time.Second              // 3x faster

	return cfg
}
