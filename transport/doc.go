// Package transport carries shard-state reports between cluster nodes over
// NATS request/reply.
//
// Each node subscribes on subjects scoped to its own node ID:
//
//	<prefix>.shard-started.<node-id>
//	<prefix>.shard-failed.<node-id>
//
// A reporter addresses the elected master by sending a request to the
// master's subject. Payloads are JSON-encoded ShardEntry values; replies
// are JSON-encoded TransportResponse values.
//
// Connectivity failures are wrapped in types.ErrConnectivity so callers can
// separate "could not reach the master" from "the master rejected this".
package transport
