package shardalloc

import "github.com/arloliu/shardalloc/allocation"

// Option configures a Coordinator with optional dependencies.
type Option func(*coordinatorOptions)

// coordinatorOptions holds optional Coordinator configuration.
type coordinatorOptions struct {
	electionAgent ElectionAgent
	transport     Transport
	deciders      *allocation.Deciders
	hooks         *Hooks
	metrics       MetricsCollector
	logger        Logger
	initialState  *ClusterState
}

// WithElectionAgent sets a custom election agent.
//
// Parameters:
//   - agent: ElectionAgent implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	agent := myElectionAgent
//	coord, err := shardalloc.NewCoordinator(&cfg, conn, shardalloc.WithElectionAgent(agent))
func WithElectionAgent(agent ElectionAgent) Option {
	return func(o *coordinatorOptions) {
		o.electionAgent = agent
	}
}

// WithTransport sets a custom shard-state transport.
//
// The default transport rides NATS request/reply on the configured
// subject prefix. Tests substitute an in-process implementation.
//
// Parameters:
//   - transport: Transport implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithTransport(transport Transport) Option {
	return func(o *coordinatorOptions) {
		o.transport = transport
	}
}

// WithDeciders sets the allocation decider chain.
//
// The default chain is same-node, throttle, filter, awareness, and
// cluster-rebalance, all bound to the coordinator's dynamic settings.
//
// Parameters:
//   - deciders: Decider chain built with allocation.NewDeciders
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	deciders := allocation.NewDeciders(decider.NewSameNode())
//	coord, err := shardalloc.NewCoordinator(&cfg, conn, shardalloc.WithDeciders(deciders))
func WithDeciders(deciders *allocation.Deciders) Option {
	return func(o *coordinatorOptions) {
		o.deciders = deciders
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	hooks := &shardalloc.Hooks{
//	    OnClusterStateChanged: func(ctx context.Context, old, updated shardalloc.ClusterState) error {
//	        return handleChange(old, updated)
//	    },
//	}
//	coord, err := shardalloc.NewCoordinator(&cfg, conn, shardalloc.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	metrics := myPrometheusCollector
//	coord, err := shardalloc.NewCoordinator(&cfg, conn, shardalloc.WithMetrics(metrics))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	coord, err := shardalloc.NewCoordinator(&cfg, conn, shardalloc.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithInitialState sets the cluster state used to bootstrap a fresh
// cluster.
//
// The state is only applied when the state bucket holds no published
// state yet. It carries the index metadata (shard and replica counts)
// and the unassigned routing table the first master allocates from.
// ClusterName and node membership are filled in by the coordinator.
//
// Parameters:
//   - state: Bootstrap cluster state
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithInitialState(state ClusterState) Option {
	return func(o *coordinatorOptions) {
		o.initialState = &state
	}
}
