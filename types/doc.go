// Package types contains the core types and interfaces shared across the
// shardalloc library.
//
// This package is imported by both the root shardalloc package and the
// internal packages, which allows internal code to depend on the shared
// definitions without creating an import cycle through the root package.
// The root package re-exports the commonly used definitions via type
// aliases for user convenience.
//
// The package is organized around three groups of definitions:
//
//   - Cluster model: ShardRouting, RoutingTable, DiscoveryNode, ClusterState
//   - Allocation contracts: Decision, AllocationDecider
//   - Pluggable collaborators: Logger, MetricsCollector, Hooks, Transport,
//     ShardStateListener
package types
