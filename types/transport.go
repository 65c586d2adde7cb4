package types

import "context"

// TransportStatus is the master's disposition of a shard-state request.
type TransportStatus string

const (
	// StatusOK acknowledges the request.
	StatusOK TransportStatus = "ok"

	// StatusNotMaster tells the reporter the receiving node is no longer
	// master, so it should re-resolve the master and retry there.
	StatusNotMaster TransportStatus = "not_master"

	// StatusError reports a generic processing failure.
	StatusError TransportStatus = "error"
)

// TransportResponse is the reply to a shard-state request.
type TransportResponse struct {
	Status TransportStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// TransportHandler processes one received shard-state request on the
// master and returns the response to deliver to the reporter.
type TransportHandler func(ctx context.Context, entry ShardEntry) TransportResponse

// Transport is the messaging boundary that carries shard-state reports
// from data nodes to the elected master.
//
// Two named request types exist: shard-started and shard-failed. The
// shipped implementation rides NATS request/reply; tests substitute an
// in-process fake.
type Transport interface {
	// SendShardStarted delivers a shard-started report to the master.
	// The response is an empty acknowledgment, always.
	SendShardStarted(ctx context.Context, masterNodeID string, entry ShardEntry) error

	// SendShardFailed delivers a shard-failed report to the master and
	// returns the master's response.
	SendShardFailed(ctx context.Context, masterNodeID string, entry ShardEntry) (TransportResponse, error)

	// HandleShardStarted registers the master-side handler for
	// shard-started requests. Registering replaces any previous handler.
	HandleShardStarted(handler TransportHandler) error

	// HandleShardFailed registers the master-side handler for
	// shard-failed requests. Registering replaces any previous handler.
	HandleShardFailed(handler TransportHandler) error

	// Close tears down subscriptions and releases transport resources.
	Close() error
}
