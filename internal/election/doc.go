// Package election provides master election for the cluster.
//
// Master election ensures exactly one node runs the cluster-state update
// pipeline at any given time. This prevents conflicting routing-table
// mutations and guarantees a single publisher of cluster states.
//
// # NATS KV Election
//
// The primary implementation uses NATS KV store for master election:
//   - Atomic operations prevent split-brain scenarios
//   - TTL-based leases enable automatic failover
//   - Revision checking ensures lease integrity
//   - Minimal latency for role acquisition
//
// # Usage
//
// Basic master election setup:
//
//	// Create KV bucket for election
//	kv, _ := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
//	    Bucket:  "shardalloc-election",
//	    TTL:     30 * time.Second,
//	    Storage: jetstream.FileStorage,
//	})
//
//	// Create election agent
//	agent := election.NewNATSElection(kv, "master")
//
//	// Request the master role
//	isMaster, err := agent.RequestMastership(ctx, nodeID, 30)
package election
