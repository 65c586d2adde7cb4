// Package hooks provides the default no-op hook implementations.
package hooks

import (
	"context"

	"github.com/arloliu/shardalloc/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, types.ClusterState, types.ClusterState) error = (*NopHooks)(nil).OnClusterStateChanged
	_ func(context.Context, string) error                                 = (*NopHooks)(nil).OnMasterChanged
	_ func(context.Context, types.State, types.State) error               = (*NopHooks)(nil).OnStateChanged
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnClusterStateChanged: h.OnClusterStateChanged,
		OnMasterChanged:       h.OnMasterChanged,
		OnStateChanged:        h.OnStateChanged,
	}
}

// OnClusterStateChanged is a no-op implementation.
func (h *NopHooks) OnClusterStateChanged(_ context.Context, _, _ types.ClusterState) error {
	return nil
}

// OnMasterChanged is a no-op implementation.
func (h *NopHooks) OnMasterChanged(_ context.Context, _ string) error {
	return nil
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(_ context.Context, _, _ types.State) error {
	return nil
}
