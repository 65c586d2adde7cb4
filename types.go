package shardalloc

import "github.com/arloliu/shardalloc/types"

// Re-export types from the internal types package.
//
// This file provides a stable, backward-compatible public API for the library's
// core types and interfaces. It uses type aliases to re-export definitions
// from the `types` subpackage, which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing internal packages
// to depend on `types` without depending on the root `shardalloc` package,
// while still providing a convenient `shardalloc.State`, `shardalloc.Logger`,
// etc. for users.
type (
	State             = types.State
	ClusterState      = types.ClusterState
	RoutingTable      = types.RoutingTable
	Metadata          = types.Metadata
	IndexMetadata     = types.IndexMetadata
	DiscoveryNode     = types.DiscoveryNode
	DiscoveryNodes    = types.DiscoveryNodes
	ShardID           = types.ShardID
	ShardRouting      = types.ShardRouting
	ShardRoutingState = types.ShardRoutingState
	ShardEntry        = types.ShardEntry
	Decision          = types.Decision
	DecisionType      = types.DecisionType
)

// Re-export interfaces from the internal types package for convenience.
type (
	ElectionAgent      = types.ElectionAgent
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
	Transport          = types.Transport
	ShardStateListener = types.ShardStateListener
)

// Re-export State constants from the internal types package.
const (
	StateInit     = types.StateInit
	StateJoining  = types.StateJoining
	StateElection = types.StateElection
	StateSyncing  = types.StateSyncing
	StateActive   = types.StateActive
	StateShutdown = types.StateShutdown
)

// Re-export shard routing state constants from the internal types package.
const (
	ShardUnassigned   = types.ShardUnassigned
	ShardInitializing = types.ShardInitializing
	ShardStarted      = types.ShardStarted
	ShardRelocating   = types.ShardRelocating
)

// Re-export decision type constants from the internal types package.
const (
	DecisionNo       = types.DecisionNo
	DecisionThrottle = types.DecisionThrottle
	DecisionYes      = types.DecisionYes
)
