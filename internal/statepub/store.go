// Package statepub publishes and distributes cluster states through a
// JetStream KV bucket.
//
// The elected master writes each new ClusterState as JSON under a single
// key. Every node, master included, holds an immutable local copy that is
// swapped by reference when a newer version arrives. Stale versions are
// ignored, so readers always observe a monotonically increasing sequence.
package statepub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/shardalloc/types"
)

// Sentinel errors returned by the Store.
var (
	// ErrAlreadyWatching is returned when StartWatch is called twice.
	ErrAlreadyWatching = errors.New("state store already watching")
)

// Subscriber receives cluster-state changes applied to the local copy.
//
// Subscribers run on the store's watch goroutine and must not block.
type Subscriber func(old, updated types.ClusterState)

// Store holds the node's local cluster state and syncs it with the KV
// bucket.
type Store struct {
	kv     jetstream.KeyValue
	key    string
	logger types.Logger

	mu      sync.RWMutex
	current types.ClusterState

	// Fan-out to subscribers
	subscribers      *xsync.Map[uint64, Subscriber]
	nextSubscriberID atomic.Uint64

	watchMu  sync.Mutex
	watching bool
	watcher  jetstream.KeyWatcher
	doneCh   chan struct{}
}

// NewStore creates a cluster-state store backed by the given KV bucket.
//
// Parameters:
//   - kv: KV bucket holding the published state
//   - key: Key the state is stored under
//   - initial: Local state before the first publication arrives
//   - log: Logger instance
//
// Returns:
//   - *Store: A new store holding the initial state
func NewStore(kv jetstream.KeyValue, key string, initial types.ClusterState, log types.Logger) *Store {
	return &Store{
		kv:          kv,
		key:         key,
		logger:      log,
		current:     initial,
		subscribers: xsync.NewMap[uint64, Subscriber](),
	}
}

// Current returns the local cluster-state copy.
func (s *Store) Current() types.ClusterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Subscribe registers a subscriber for state changes.
//
// Returns:
//   - func(): Unsubscribe function to clean up resources
func (s *Store) Subscribe(sub Subscriber) func() {
	id := s.nextSubscriberID.Add(1)
	s.subscribers.Store(id, sub)

	return func() {
		s.subscribers.Delete(id)
	}
}

// Publish writes the state to the KV bucket and applies it locally.
//
// Only the elected master calls Publish. The local apply means the master
// does not depend on its own watch round trip to observe the new state.
//
// Parameters:
//   - ctx: Context for cancellation and deadline
//   - state: The cluster state to publish
//
// Returns:
//   - error: Marshal or KV write failure
func (s *Store) Publish(ctx context.Context, state types.ClusterState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster state: %w", err)
	}

	if _, err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to publish cluster state version %d: %w", state.Version, err)
	}

	s.apply(state)

	return nil
}

// Load reads the currently published state from the KV bucket and applies
// it locally.
//
// Returns:
//   - bool: true when a published state exists, false on a fresh bucket
//   - error: KV read or unmarshal failure
func (s *Store) Load(ctx context.Context) (bool, error) {
	entry, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read cluster state: %w", err)
	}

	var state types.ClusterState
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return false, fmt.Errorf("failed to decode cluster state: %w", err)
	}

	s.apply(state)

	return true, nil
}

// StartWatch begins watching the KV key and applies newer versions as they
// are published.
//
// Parameters:
//   - ctx: Context bounding the watch lifetime
//
// Returns:
//   - error: ErrAlreadyWatching or KV watch setup failure
func (s *Store) StartWatch(ctx context.Context) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watching {
		return ErrAlreadyWatching
	}

	watcher, err := s.kv.Watch(ctx, s.key, jetstream.UpdatesOnly())
	if err != nil {
		return fmt.Errorf("failed to watch cluster state key %q: %w", s.key, err)
	}

	s.watcher = watcher
	s.watching = true
	s.doneCh = make(chan struct{})

	go s.watchLoop(watcher, s.doneCh)

	return nil
}

// StopWatch stops the KV watch and waits for the watch goroutine to exit.
// Calling StopWatch on a store that is not watching is a no-op.
func (s *Store) StopWatch() {
	s.watchMu.Lock()
	if !s.watching {
		s.watchMu.Unlock()
		return
	}

	watcher := s.watcher
	doneCh := s.doneCh
	s.watching = false
	s.watcher = nil
	s.watchMu.Unlock()

	_ = watcher.Stop()
	<-doneCh
}

func (s *Store) watchLoop(watcher jetstream.KeyWatcher, doneCh chan struct{}) {
	defer close(doneCh)

	for entry := range watcher.Updates() {
		if entry == nil || entry.Operation() != jetstream.KeyValuePut {
			continue
		}

		var state types.ClusterState
		if err := json.Unmarshal(entry.Value(), &state); err != nil {
			s.logger.Error("discarding undecodable cluster state update",
				"key", s.key, "revision", entry.Revision(), "error", err)

			continue
		}

		s.apply(state)
	}
}

// apply swaps the local copy when the incoming state is newer and fans the
// change out to subscribers.
func (s *Store) apply(state types.ClusterState) {
	s.mu.Lock()
	if state.Version <= s.current.Version {
		s.mu.Unlock()
		return
	}

	old := s.current
	s.current = state
	s.mu.Unlock()

	s.logger.Debug("applied cluster state",
		"version", state.Version, "previous_version", old.Version)

	s.subscribers.Range(func(_ uint64, sub Subscriber) bool {
		sub(old, state)

		return true
	})
}
