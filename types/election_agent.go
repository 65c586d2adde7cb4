package types

import "context"

// ElectionAgent handles master election for the cluster.
//
// Master election ensures exactly one node runs the cluster-state update
// pipeline. The elected master is responsible for:
//   - Applying shard-state reports to the routing table
//   - Running decider-driven allocation passes
//   - Publishing new cluster states
//
// Implementations can use:
//   - NATS KV (built-in, recommended)
//   - External agents (Consul, etcd, Zookeeper)
//   - Custom coordination services
//
// The Coordinator calls ElectionAgent methods during:
//   - Startup (request mastership)
//   - Background loop (renew mastership)
//   - Shutdown (release mastership)
type ElectionAgent interface {
	// RequestMastership attempts to acquire the master role.
	//
	// Should use a lease-based mechanism with the specified duration.
	// If already master, should extend the lease.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - nodeID: The node ID requesting the master role
	//   - leaseDuration: Lease duration in seconds
	//
	// Returns:
	//   - bool: true if mastership acquired/held, false otherwise
	//   - error: Election error (nil on success)
	RequestMastership(ctx context.Context, nodeID string, leaseDuration int64) (bool, error)

	// RenewMastership renews the current master lease.
	//
	// Called periodically by the master to keep the role. Should fail if
	// mastership was lost (another node became master).
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - error: Renewal error (nil on success, non-nil indicates the
	//     role was lost)
	RenewMastership(ctx context.Context) error

	// ReleaseMastership voluntarily releases the master role.
	//
	// Called during graceful shutdown to allow fast failover.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - error: Release error (nil on success)
	ReleaseMastership(ctx context.Context) error

	// IsMaster checks if this node currently holds the master role.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - bool: true if this node is the master
	//   - error: Check error (nil on success)
	IsMaster(ctx context.Context) (bool, error)

	// CurrentMaster returns the node ID currently holding the master
	// lease, whether or not it is this node.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - string: Master node ID ("" when no master is elected)
	//   - error: Lookup error (nil on success)
	CurrentMaster(ctx context.Context) (string, error)
}
