package types

import "context"

// Hooks defines callbacks for Coordinator lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// to avoid blocking the update pipeline. Hooks receive the coordinator's
// lifecycle context which will be cancelled during shutdown.
//
// Best practices for hook implementation:
//   - Complete quickly (< 1 second recommended)
//   - Respect context cancellation
//   - Don't block on long I/O operations
//   - Make hooks idempotent (may be called multiple times)
//   - Handle errors gracefully (return error for logging)
type Hooks struct {
	// OnClusterStateChanged is called when a new cluster state is applied
	// locally. old may be the zero value for the first state.
	OnClusterStateChanged func(ctx context.Context, old, updated ClusterState) error

	// OnMasterChanged is called when the elected master changes.
	OnMasterChanged func(ctx context.Context, masterNodeID string) error

	// OnStateChanged is called when the coordinator state transitions.
	OnStateChanged func(ctx context.Context, from, to State) error
}
