package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/natsutil"
	"github.com/arloliu/shardalloc/types"
)

// DefaultHandleTimeout bounds master-side processing of one request.
const DefaultHandleTimeout = 30 * time.Second

// NATS implements types.Transport over core NATS request/reply.
//
// Safe for concurrent use. One instance serves both roles: sending reports
// to whichever node is master, and (after handler registration) answering
// reports addressed to this node.
type NATS struct {
	conn   *nats.Conn
	prefix string
	nodeID string
	logger types.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Compile-time assertion that NATS implements Transport.
var _ types.Transport = (*NATS)(nil)

// NewNATS creates a NATS-backed transport.
//
// Parameters:
//   - conn: Established NATS connection (required)
//   - prefix: Subject prefix shared by all cluster nodes (required)
//   - nodeID: This node's ID, used for handler subscriptions (required)
//   - log: Logger (nil for no-op)
//
// Returns:
//   - *NATS: Initialized transport
func NewNATS(conn *nats.Conn, prefix, nodeID string, log types.Logger) *NATS {
	if log == nil {
		log = logger.NewNop()
	}

	return &NATS{
		conn:   conn,
		prefix: prefix,
		nodeID: nodeID,
		logger: log,
		subs:   make(map[string]*nats.Subscription),
	}
}

// SendShardStarted delivers a shard-started report to the master.
func (t *NATS) SendShardStarted(ctx context.Context, masterNodeID string, entry types.ShardEntry) error {
	_, err := t.request(ctx, t.subject("shard-started", masterNodeID), entry)

	return err
}

// SendShardFailed delivers a shard-failed report to the master and returns
// the master's response.
func (t *NATS) SendShardFailed(ctx context.Context, masterNodeID string, entry types.ShardEntry) (types.TransportResponse, error) {
	return t.request(ctx, t.subject("shard-failed", masterNodeID), entry)
}

// HandleShardStarted registers the handler answering shard-started
// requests addressed to this node. Registering replaces any previous
// handler.
func (t *NATS) HandleShardStarted(handler types.TransportHandler) error {
	return t.subscribe(t.subject("shard-started", t.nodeID), handler)
}

// HandleShardFailed registers the handler answering shard-failed requests
// addressed to this node. Registering replaces any previous handler.
func (t *NATS) HandleShardFailed(handler types.TransportHandler) error {
	return t.subscribe(t.subject("shard-failed", t.nodeID), handler)
}

// Close unsubscribes all handlers. The underlying connection is owned by
// the caller and stays open.
func (t *NATS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for subject, sub := range t.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
		}
		delete(t.subs, subject)
	}

	return firstErr
}

func (t *NATS) subject(kind, nodeID string) string {
	return fmt.Sprintf("%s.%s.%s", t.prefix, kind, nodeID)
}

func (t *NATS) request(ctx context.Context, subject string, entry types.ShardEntry) (types.TransportResponse, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return types.TransportResponse{}, fmt.Errorf("failed to encode shard entry: %w", err)
	}

	msg, err := t.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		if natsutil.IsConnectivityError(err) {
			return types.TransportResponse{}, fmt.Errorf("%w: request to %s: %w", types.ErrConnectivity, subject, err)
		}

		return types.TransportResponse{}, fmt.Errorf("request to %s failed: %w", subject, err)
	}

	var resp types.TransportResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return types.TransportResponse{}, fmt.Errorf("failed to decode response from %s: %w", subject, err)
	}

	return resp, nil
}

func (t *NATS) subscribe(subject string, handler types.TransportHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Drop any previous handler first so two handlers never race to
	// answer the same request.
	if prev, ok := t.subs[subject]; ok {
		_ = prev.Unsubscribe()
		delete(t.subs, subject)
	}

	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		t.serve(msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	t.subs[subject] = sub

	return nil
}

// serve decodes one request, runs the handler with a bounded context, and
// replies with the encoded response.
func (t *NATS) serve(msg *nats.Msg, handler types.TransportHandler) {
	var entry types.ShardEntry
	if err := json.Unmarshal(msg.Data, &entry); err != nil {
		t.logger.Warn("dropping undecodable shard-state request", "subject", msg.Subject, "error", err)
		t.respond(msg, types.TransportResponse{Status: types.StatusError, Error: "undecodable request"})

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultHandleTimeout)
	defer cancel()

	t.respond(msg, handler(ctx, entry))
}

func (t *NATS) respond(msg *nats.Msg, resp types.TransportResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		t.logger.Error("failed to encode transport response", "error", err)

		return
	}
	if err := msg.Respond(data); err != nil {
		t.logger.Warn("failed to respond to shard-state request", "subject", msg.Subject, "error", err)
	}
}
