package election

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/shardalloc/types"
)

// Common errors for election operations.
var (
	ErrNotMaster       = errors.New("not the master")
	ErrMastershipLost  = errors.New("mastership was lost")
	ErrInvalidDuration = errors.New("invalid lease duration")
)

// NATSElection implements master election using NATS KV store.
//
// Uses atomic KV operations for election:
//   - Create (atomic): Acquire the master role if the key doesn't exist
//   - Update (with revision): Renew the role if still holding the lease
//   - Delete: Release the role
//
// The master key contains the node ID and is automatically deleted when
// the TTL expires, allowing automatic failover.
//
// All fields are protected by mu for thread-safe concurrent access.
type NATSElection struct {
	kv       jetstream.KeyValue
	key      string
	mu       sync.RWMutex
	nodeID   string
	revision uint64
	isMaster bool
}

// Compile-time assertion that NATSElection implements ElectionAgent.
var _ types.ElectionAgent = (*NATSElection)(nil)

// NewNATSElection creates a new NATS KV-based election agent.
//
// The KV bucket should be configured with a short TTL (e.g., 10-30s) for
// automatic failover when the master crashes.
//
// Parameters:
//   - kv: JetStream KV bucket for election coordination
//   - key: Key name for the master claim (e.g., "master")
//
// Returns:
//   - *NATSElection: New election agent instance
func NewNATSElection(kv jetstream.KeyValue, key string) *NATSElection {
	return &NATSElection{
		kv:  kv,
		key: key,
	}
}

// RequestMastership attempts to acquire or maintain the master role.
//
// Uses atomic Create for initial acquisition and Update for renewal. The
// lease duration is enforced by the KV bucket's TTL configuration.
//
// Parameters:
//   - ctx: Context for timeout
//   - nodeID: The node ID requesting the role
//   - leaseDuration: Lease duration in seconds (unused, TTL set at bucket level)
//
// Returns:
//   - bool: true if mastership acquired/held, false otherwise
//   - error: Election error or context cancellation
func (e *NATSElection) RequestMastership(ctx context.Context, nodeID string, leaseDuration int64) (bool, error) {
	if leaseDuration <= 0 {
		return false, ErrInvalidDuration
	}

	isMaster, currentNodeID, _ := e.getMasterState()

	// Already master with this node ID, try to renew
	if isMaster && currentNodeID == nodeID {
		err := e.RenewMastership(ctx)
		if err == nil {
			return true, nil
		}
		// Role lost, fall through to try acquiring again
		e.clearMastership()
	}

	value := []byte(fmt.Sprintf("%s:%d", nodeID, time.Now().Unix()))

	revision, err := e.kv.Create(ctx, e.key, value)
	if err != nil {
		// Key already exists, another node holds the lease
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create master key: %w", err)
	}

	e.setMasterState(true, nodeID, revision)

	return true, nil
}

// RenewMastership renews the current master lease.
//
// Uses Update with revision check to ensure we still hold the lease. If
// another node claimed the role, this fails.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - error: ErrNotMaster if not the master, ErrMastershipLost if lost,
//     nil on success
func (e *NATSElection) RenewMastership(ctx context.Context) error {
	isMaster, nodeID, revision := e.getMasterState()

	if !isMaster {
		return ErrNotMaster
	}

	value := []byte(fmt.Sprintf("%s:%d", nodeID, time.Now().Unix()))

	newRevision, err := e.kv.Update(ctx, e.key, value, revision)
	if err != nil {
		e.clearMastership()

		return fmt.Errorf("%w: %w", ErrMastershipLost, err)
	}

	e.mu.Lock()
	e.revision = newRevision
	e.mu.Unlock()

	return nil
}

// ReleaseMastership voluntarily releases the master role.
//
// Deletes the master key to allow immediate failover to another node.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - error: Release error or context cancellation
func (e *NATSElection) ReleaseMastership(ctx context.Context) error {
	isMaster, _, _ := e.getMasterState()

	if !isMaster {
		return ErrNotMaster
	}

	err := e.kv.Delete(ctx, e.key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete master key: %w", err)
	}

	e.setMasterState(false, "", 0)

	return nil
}

// IsMaster checks if this node currently holds the master role.
//
// Verifies the role by checking that the key still exists at our revision.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - bool: true if this node is the master
//   - error: Check error or context cancellation
func (e *NATSElection) IsMaster(ctx context.Context) (bool, error) {
	isMaster, _, revision := e.getMasterState()

	if !isMaster {
		return false, nil
	}

	entry, err := e.kv.Get(ctx, e.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			e.clearMastership()

			return false, nil
		}

		return false, fmt.Errorf("failed to get master key: %w", err)
	}

	if entry.Revision() != revision {
		e.clearMastership()

		return false, nil
	}

	return true, nil
}

// CurrentMaster returns the node ID currently holding the master lease.
//
// Reads the master key from KV, so any node can resolve the master, not
// just the one holding the lease.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - string: Master node ID ("" when no master is elected)
//   - error: Lookup error or context cancellation
func (e *NATSElection) CurrentMaster(ctx context.Context) (string, error) {
	entry, err := e.kv.Get(ctx, e.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", nil
		}

		return "", fmt.Errorf("failed to get master key: %w", err)
	}

	// Value format is "<node-id>:<unix-timestamp>"
	value := string(entry.Value())
	if idx := strings.LastIndex(value, ":"); idx >= 0 {
		return value[:idx], nil
	}

	return value, nil
}

// NodeID returns this node's ID if it holds the master role, "" otherwise.
func (e *NATSElection) NodeID() string {
	_, nodeID, _ := e.getMasterState()

	return nodeID
}

// getMasterState returns the current election state (thread-safe).
func (e *NATSElection) getMasterState() (isMaster bool, nodeID string, revision uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isMaster, e.nodeID, e.revision
}

// setMasterState updates the election state (thread-safe).
func (e *NATSElection) setMasterState(isMaster bool, nodeID string, revision uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isMaster = isMaster
	e.nodeID = nodeID
	e.revision = revision
}

// clearMastership clears the master flag (thread-safe).
func (e *NATSElection) clearMastership() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isMaster = false
}
