package shardalloc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/shardalloc/allocation"
	"github.com/arloliu/shardalloc/decider"
	"github.com/arloliu/shardalloc/internal/election"
	"github.com/arloliu/shardalloc/internal/hooks"
	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/master"
	"github.com/arloliu/shardalloc/internal/metrics"
	"github.com/arloliu/shardalloc/internal/natsutil"
	"github.com/arloliu/shardalloc/internal/routing"
	"github.com/arloliu/shardalloc/internal/statepub"
	"github.com/arloliu/shardalloc/settings"
	"github.com/arloliu/shardalloc/shardstate"
	"github.com/arloliu/shardalloc/transport"
)

// clusterStateKey is the KV key the published cluster state lives under.
const clusterStateKey = "cluster-state"

// electionKey is the KV key the master lease lives under.
const electionKey = "master"

// Coordinator ties shard allocation, master election, and shard-state
// reporting together on one cluster node.
//
// Coordinator is the main entry point of the library. It handles:
//   - Master election through a NATS JetStream KV lease
//   - The master-side batching pipeline and reroute loop
//   - Cluster-state publication and distribution via JetStream KV
//   - Shard-state reporting (started/failed) from data nodes to the master
//   - Dynamic cluster settings consumed live by the allocation deciders
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - State transitions are atomic and linearizable
//   - Cluster states are immutable and swapped by reference
//
// Lifecycle:
//   - Create with NewCoordinator()
//   - Call Start() to join the cluster and run one election round
//   - Use hooks to react to cluster-state and master changes
//   - Call Stop() for graceful shutdown
//
// Cluster membership is supplied through the bootstrap state (see
// WithInitialState); the coordinator maintains only its own node entry
// and the master pointer. Full membership tracking is out of scope.
type Coordinator struct {
	cfg  Config
	conn *nats.Conn

	// Optional dependencies
	electionAgent ElectionAgent
	transport     Transport
	hooks         *Hooks
	metrics       MetricsCollector
	logger        Logger

	// Internal components
	settings   *settings.Settings
	allocSvc   *allocation.Service
	stateStore *statepub.Store
	action     *shardstate.Action

	// Master-term components, rebuilt on every promotion
	pipeline   *master.Pipeline
	routingSvc *routing.Service

	bootstrap ClusterState

	// State management
	state    atomic.Int32 // State
	isMaster atomic.Bool
	masterID atomic.Value // string

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewCoordinator creates a new Coordinator instance with the provided configuration.
//
// The Coordinator uses NATS for all cluster coordination:
//   - Master election lease (via NATS JetStream KV)
//   - Cluster-state publication and watch (via NATS JetStream KV)
//   - Shard-state report traffic (via NATS request/reply)
//
// Returns a concrete *Coordinator struct following the "accept interfaces,
// return structs" principle. Consumers can define their own interfaces for
// testing if needed.
//
// Parameters:
//   - cfg: Runtime configuration with parsed durations
//   - conn: NATS connection for coordination
//   - opts: Optional configuration (deciders, hooks, metrics, logger, election agent, transport)
//
// Returns:
//   - *Coordinator: Initialized coordinator instance
//   - error: Validation error if configuration is invalid
//
// Example:
//
//	cfg := shardalloc.DefaultConfig()
//	cfg.NodeID = "node-1"
//	cfg.NodeAttributes = map[string]string{"zone": "us-east-1a"}
//	coord, err := shardalloc.NewCoordinator(&cfg, natsConn)
func NewCoordinator(cfg *Config, conn *nats.Conn, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if conn == nil {
		return nil, ErrNATSConnectionRequired
	}

	// Fill in missing configuration values with defaults
	SetDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Apply options
	options := &coordinatorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Provide safe defaults for optional dependencies to avoid nil checks everywhere
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logger.NewNop()
	}

	// Validate with warnings after logger is available
	cfg.ValidateWithWarnings(loggerInstance)

	hooksInstance := options.hooks
	if hooksInstance == nil {
		nopHooks := hooks.NewNop()
		hooksInstance = &nopHooks
	}

	settingsStore := settings.New(cfg.InitialSettings)

	deciders := options.deciders
	if deciders == nil {
		deciders = allocation.NewDeciders(
			decider.NewSameNode(),
			decider.NewThrottle(settingsStore, loggerInstance),
			decider.NewFilter(settingsStore, loggerInstance),
			decider.NewAwareness(settingsStore, loggerInstance),
			decider.NewClusterRebalance(settingsStore, loggerInstance),
		)
	}

	bootstrap := ClusterState{ClusterName: cfg.ClusterName, Version: 1}
	if options.initialState != nil {
		bootstrap = *options.initialState
		bootstrap.ClusterName = cfg.ClusterName
		if bootstrap.Version == 0 {
			bootstrap.Version = 1
		}
	}

	c := &Coordinator{
		cfg:           *cfg,
		conn:          conn,
		electionAgent: options.electionAgent,
		transport:     options.transport,
		hooks:         hooksInstance,
		metrics:       metricsCollector,
		logger:        loggerInstance,
		settings:      settingsStore,
		bootstrap:     bootstrap,
	}
	c.allocSvc = allocation.NewService(deciders, loggerInstance, metricsCollector)

	// Initialize state
	c.state.Store(int32(StateInit))
	c.masterID.Store("")

	return c, nil
}

// Start joins the cluster and runs the first election round.
//
// Blocks until the coordination buckets exist, one election round has
// completed, and the local cluster-state copy is live.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: Startup error or context cancellation
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()

		return ErrAlreadyStarted
	}

	// Create coordinator context with parent
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	// Apply startup timeout from the provided context
	startupCtx := ctx
	if c.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = context.WithTimeout(ctx, c.cfg.StartupTimeout)
		defer cancel()
	}

	// Initialize NATS JetStream
	js, err := jetstream.New(c.conn)
	if err != nil {
		return fmt.Errorf("failed to create jetstream context: %w", err)
	}

	// Step 1: Join the coordination buckets
	c.transitionState(c.State(), StateJoining)

	electionKV, err := c.ensureKVBucket(startupCtx, js, c.cfg.KVBuckets.ElectionBucket, c.cfg.MasterLeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create election KV: %w", err)
	}

	// State bucket has no TTL: the latest version must survive master changes
	stateKV, err := c.ensureKVBucket(startupCtx, js, c.cfg.KVBuckets.StateBucket, 0)
	if err != nil {
		return fmt.Errorf("failed to create state KV: %w", err)
	}

	c.stateStore = statepub.NewStore(stateKV, clusterStateKey, c.bootstrap, c.logger)
	c.stateStore.Subscribe(c.onClusterStateChanged)

	if _, err := c.stateStore.Load(startupCtx); err != nil {
		return fmt.Errorf("failed to load cluster state: %w", err)
	}

	// Step 2: Set up shard-state transport
	if c.transport == nil {
		c.transport = transport.NewNATS(c.conn, c.cfg.SubjectPrefix, c.cfg.NodeID, c.logger)
	}
	c.action = shardstate.NewAction(c.transport, c.resolveMaster, c.logger, c.metrics)

	// Step 3: Run one election round
	c.transitionState(c.State(), StateElection)
	if c.electionAgent == nil {
		c.electionAgent = election.NewNATSElection(electionKV, electionKey)
	}

	elected, err := c.electionAgent.RequestMastership(startupCtx, c.cfg.NodeID, c.leaseSeconds())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrElectionFailed, err)
	}

	// Step 4: Sync the cluster state for this node's role
	c.transitionState(c.State(), StateSyncing)

	if elected {
		if err := c.becomeMaster(startupCtx); err != nil {
			return fmt.Errorf("failed to take mastership: %w", err)
		}
	} else {
		if err := c.stateStore.StartWatch(c.ctx); err != nil {
			return fmt.Errorf("failed to watch cluster state: %w", err)
		}
		c.refreshMaster(startupCtx)
		c.logger.Info("participating as data node", "node_id", c.cfg.NodeID)
	}

	c.transitionState(c.State(), StateActive)

	// Start background election loop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.electionLoop()
	}()

	return nil
}

// Stop gracefully shuts down the coordinator.
//
// Safe to call multiple times; subsequent calls return ErrNotStarted.
//
// Parameters:
//   - ctx: Context for shutdown timeout
//
// Returns:
//   - error: Shutdown error or timeout
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()

	// Check if already stopped or never started
	if c.ctx == nil {
		c.mu.Unlock()

		return ErrNotStarted
	}

	currentState := c.State()
	if currentState == StateShutdown {
		c.mu.Unlock()

		return ErrNotStarted
	}

	c.transitionState(currentState, StateShutdown)

	// Cancel coordinator context to stop all background goroutines
	c.cancel()

	pipeline := c.pipeline
	c.pipeline = nil
	c.routingSvc = nil
	c.mu.Unlock()

	// Shutdown sequence (reverse of startup)
	var shutdownErr error

	// Step 1: Drain and stop the master pipeline
	if pipeline != nil {
		if err := pipeline.Stop(); err != nil && !errors.Is(err, master.ErrNotStarted) {
			c.logger.Error("failed to stop pipeline", "error", err)
			shutdownErr = fmt.Errorf("pipeline stop failed: %w", err)
		}
	}

	// Step 2: Release the master lease so a successor is elected promptly
	if c.electionAgent != nil && c.IsMaster() {
		if err := c.electionAgent.ReleaseMastership(ctx); err != nil {
			c.logger.Error("failed to release mastership", "error", err)
			if shutdownErr == nil {
				shutdownErr = fmt.Errorf("mastership release failed: %w", err)
			}
		}
		c.isMaster.Store(false)
	}

	// Step 3: Stop the cluster-state watch
	if c.stateStore != nil {
		c.stateStore.StopWatch()
	}

	// Step 4: Tear down shard-state reporting
	if c.action != nil {
		if err := c.action.Close(); err != nil {
			c.logger.Error("failed to close shard-state action", "error", err)
		}
	}
	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			c.logger.Error("failed to close transport", "error", err)
		}
	}

	// Step 5: Wait for all background goroutines with timeout
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("coordinator stopped gracefully", "node_id", c.cfg.NodeID)
		return shutdownErr
	case <-ctx.Done():
		c.logger.Error("shutdown timeout exceeded, some goroutines may still be running")
		if shutdownErr == nil {
			return ctx.Err()
		}

		return fmt.Errorf("shutdown timeout: %w; additional error: %w", ctx.Err(), shutdownErr)
	}
}

// NodeID returns this node's identifier.
func (c *Coordinator) NodeID() string {
	return c.cfg.NodeID
}

// IsMaster returns true if this node is the elected master.
func (c *Coordinator) IsMaster() bool {
	return c.isMaster.Load()
}

// CurrentMaster returns the node ID of the elected master, or "" when no
// master is currently known.
func (c *Coordinator) CurrentMaster() string {
	if id := c.masterID.Load(); id != nil {
		if str, ok := id.(string); ok {
			return str
		}
	}

	return ""
}

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// ClusterState returns the local copy of the latest cluster state.
func (c *Coordinator) ClusterState() ClusterState {
	c.mu.RLock()
	store := c.stateStore
	c.mu.RUnlock()

	if store == nil {
		return c.bootstrap
	}

	return store.Current()
}

// Settings returns the coordinator's dynamic cluster settings.
//
// Deciders consume the settings live; see ApplySettings for the update
// path that also triggers a reroute.
func (c *Coordinator) Settings() *settings.Settings {
	return c.settings
}

// ApplySettings merges dynamic setting updates and, on the master,
// triggers a reroute so the new policies take effect immediately.
//
// Parameters:
//   - updates: Setting key/value pairs; an empty value removes the key
//
// Returns:
//   - error: Reroute submission failure, nil on data nodes
func (c *Coordinator) ApplySettings(updates map[string]string) error {
	c.settings.Apply(updates)

	if !c.IsMaster() {
		return nil
	}

	return c.Reroute(context.Background(), "cluster settings updated")
}

// Reroute submits an allocation pass to the master pipeline.
//
// Parameters:
//   - ctx: Unused, reserved for API symmetry
//   - reason: Human-readable trigger description carried into logs
//
// Returns:
//   - error: ErrNotStarted before Start, ErrNoMaster while no master is
//     known, ErrNotMaster on data nodes
func (c *Coordinator) Reroute(_ context.Context, reason string) error {
	currentState := c.State()
	if currentState == StateInit || currentState == StateShutdown {
		return ErrNotStarted
	}

	c.mu.RLock()
	svc := c.routingSvc
	c.mu.RUnlock()

	if !c.IsMaster() || svc == nil {
		if c.CurrentMaster() == "" {
			return ErrNoMaster
		}

		return ErrNotMaster
	}

	return svc.Reroute(reason)
}

// ReportShardStarted reports a locally recovered shard copy to the master.
//
// Fire-and-forget: delivery failures are logged, and the master's next
// reroute pass retries the activation path.
//
// Parameters:
//   - ctx: Context bounding the report delivery
//   - entry: The shard-started report payload
func (c *Coordinator) ReportShardStarted(ctx context.Context, entry ShardEntry) {
	c.action.ShardStarted(ctx, entry)
}

// ReportShardFailed reports a failed shard copy to the master.
//
// Asynchronous: exactly one listener callback fires with the outcome.
// The caller decides whether to retry after OnNoMaster or OnFailure;
// this layer does not retry on its own.
//
// Parameters:
//   - ctx: Context bounding the report delivery
//   - entry: The shard-failed report payload
//   - timeout: Per-report timeout, 0 for the context's deadline only
//   - listener: Outcome callbacks, may be nil
func (c *Coordinator) ReportShardFailed(ctx context.Context, entry ShardEntry, timeout time.Duration, listener ShardStateListener) {
	c.action.ShardFailed(ctx, entry, timeout, listener)
}

// WaitState waits for the coordinator to reach the expected state within the timeout period.
//
// The method returns a read-only channel that will receive exactly one value:
//   - nil if the expected state is reached within the timeout
//   - context.DeadlineExceeded if the timeout expires before reaching the state
//
// The channel is closed after sending the result, allowing safe use in
// select statements.
//
// Parameters:
//   - expectedState: The state to wait for
//   - timeout: Maximum duration to wait for the state
//
// Returns:
//   - <-chan error: A channel that receives the result (nil on success, error on timeout)
//
// Example:
//
//	errCh := coord.WaitState(shardalloc.StateActive, 10*time.Second)
//	if err := <-errCh; err != nil {
//	    log.Printf("failed to reach Active state: %v", err)
//	}
func (c *Coordinator) WaitState(expectedState State, timeout time.Duration) <-chan error {
	ch := make(chan error, 1) // Buffered to prevent goroutine leak

	go func() {
		defer close(ch)

		if c.State() == expectedState {
			ch <- nil
			return
		}

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		timeoutTimer := time.NewTimer(timeout)
		defer timeoutTimer.Stop()

		for {
			select {
			case <-ticker.C:
				if c.State() == expectedState {
					ch <- nil
					return
				}
			case <-timeoutTimer.C:
				ch <- context.DeadlineExceeded
				return
			}
		}
	}()

	return ch
}

// becomeMaster promotes this node to master for one mastership term.
//
// Builds a fresh pipeline seeded from the latest published state,
// registers the master-side transport handlers, publishes the membership
// update, and kicks off the first reroute.
func (c *Coordinator) becomeMaster(ctx context.Context) error {
	// The master observes its own publishes directly, not via the watch.
	c.stateStore.StopWatch()

	// Register this node and the master pointer in the published state.
	self := DiscoveryNode{ID: c.cfg.NodeID, Name: c.cfg.NodeName, Attributes: c.cfg.NodeAttributes}
	current := c.stateStore.Current()
	next := current.WithNodes(current.Nodes.WithNode(self).WithMaster(c.cfg.NodeID))
	if err := c.stateStore.Publish(ctx, next); err != nil {
		return fmt.Errorf("failed to publish membership state: %w", err)
	}

	pipeline := master.NewPipeline(c.stateStore.Current(), c.stateStore.Publish, c.logger, c.metrics)
	routingSvc := routing.NewService(c.allocSvc, pipeline, c.logger)
	pipeline.OnPublished = routingSvc.HandleStatePublished

	if err := pipeline.Start(c.ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	if err := c.action.RegisterMasterHandlers(routingSvc, c.IsMaster); err != nil {
		_ = pipeline.Stop()
		return fmt.Errorf("failed to register master handlers: %w", err)
	}

	c.mu.Lock()
	c.pipeline = pipeline
	c.routingSvc = routingSvc
	c.mu.Unlock()

	c.isMaster.Store(true)
	c.setMaster(c.cfg.NodeID)
	c.logger.Info("elected as master", "node_id", c.cfg.NodeID)

	if err := routingSvc.Reroute("master elected"); err != nil {
		c.logger.Error("failed to submit initial reroute", "error", err)
	}

	return nil
}

// resignMaster demotes this node after a lost lease.
//
// The pipeline is stopped, queued tasks are rejected, and the node falls
// back to watching the published state like any data node.
func (c *Coordinator) resignMaster() {
	c.mu.Lock()
	pipeline := c.pipeline
	c.pipeline = nil
	c.routingSvc = nil
	c.mu.Unlock()

	c.isMaster.Store(false)
	c.setMaster("")

	if pipeline != nil {
		if err := pipeline.Stop(); err != nil && !errors.Is(err, master.ErrNotStarted) {
			c.logger.Error("failed to stop pipeline on demotion", "error", err)
		}
	}

	if err := c.stateStore.StartWatch(c.ctx); err != nil && !errors.Is(err, statepub.ErrAlreadyWatching) {
		c.logger.Error("failed to restart cluster state watch", "error", err)
	}

	c.logger.Warn("lost mastership", "node_id", c.cfg.NodeID)
}

// electionLoop renews the master lease or, on data nodes, periodically
// retries acquisition and refreshes the master pointer.
func (c *Coordinator) electionLoop() {
	for {
		interval := c.cfg.ElectionRetryInterval
		if c.IsMaster() {
			interval = c.cfg.MasterRenewInterval
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(interval):
		}

		opCtx, cancel := context.WithTimeout(c.ctx, c.cfg.OperationTimeout)
		if c.IsMaster() {
			if err := c.electionAgent.RenewMastership(opCtx); err != nil {
				c.logger.Error("failed to renew mastership", "node_id", c.cfg.NodeID, "error", err)
				c.resignMaster()
			}
		} else {
			elected, err := c.electionAgent.RequestMastership(opCtx, c.cfg.NodeID, c.leaseSeconds())
			switch {
			case err != nil:
				c.logger.Error("failed to request mastership", "node_id", c.cfg.NodeID, "error", err)
			case elected:
				if err := c.becomeMaster(opCtx); err != nil {
					c.logger.Error("failed to take mastership", "node_id", c.cfg.NodeID, "error", err)
					if relErr := c.electionAgent.ReleaseMastership(opCtx); relErr != nil {
						c.logger.Error("failed to release mastership after failed takeover", "error", relErr)
					}
				}
			default:
				c.refreshMaster(opCtx)
			}
		}
		cancel()
	}
}

// refreshMaster re-resolves the current master from the election agent.
func (c *Coordinator) refreshMaster(ctx context.Context) {
	masterNodeID, err := c.electionAgent.CurrentMaster(ctx)
	if err != nil {
		c.logger.Warn("failed to resolve current master", "error", err)
		return
	}

	c.setMaster(masterNodeID)
}

// setMaster records a master change and triggers the hook and metric.
func (c *Coordinator) setMaster(masterNodeID string) {
	previous := c.CurrentMaster()
	if previous == masterNodeID {
		return
	}

	c.masterID.Store(masterNodeID)
	c.metrics.RecordMasterChange(masterNodeID)
	c.logger.Info("master changed", "master_node_id", masterNodeID, "previous", previous)

	if c.hooks.OnMasterChanged != nil {
		go func() {
			if err := c.hooks.OnMasterChanged(c.ctx, masterNodeID); err != nil {
				c.logger.Error("master change hook error", "master_node_id", masterNodeID, "error", err)
			}
		}()
	}
}

// resolveMaster is the shard-state action's master lookup.
func (c *Coordinator) resolveMaster() (string, bool) {
	masterNodeID := c.CurrentMaster()

	return masterNodeID, masterNodeID != ""
}

// onClusterStateChanged fans a locally applied state out to the hook.
func (c *Coordinator) onClusterStateChanged(old, updated ClusterState) {
	if c.hooks.OnClusterStateChanged == nil {
		return
	}

	go func() {
		if err := c.hooks.OnClusterStateChanged(c.ctx, old, updated); err != nil {
			c.logger.Error("cluster state hook error", "version", updated.Version, "error", err)
		}
	}()
}

// transitionState transitions to a new state and triggers hooks.
func (c *Coordinator) transitionState(from, to State) {
	if !c.isValidTransition(from, to) {
		c.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
		)

		return
	}

	c.state.Store(int32(to)) //nolint:gosec // State values are controlled enum

	c.logger.Info("state transition",
		"from", from.String(),
		"to", to.String(),
		"node_id", c.cfg.NodeID,
	)

	// Trigger state change hook
	if c.hooks.OnStateChanged != nil {
		// Run hook in background to avoid blocking the lifecycle
		go func() {
			if err := c.hooks.OnStateChanged(c.ctx, from, to); err != nil {
				c.logger.Error("state change hook error", "from", from, "to", to, "error", err)
			}
		}()
	}

	// Record metrics (always non-nil, defaults to nopMetrics)
	c.metrics.RecordStateTransition(from, to, 0)
}

// isValidTransition validates that a state transition is allowed.
//
// Returns:
//   - bool: true if transition is valid, false otherwise
func (c *Coordinator) isValidTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateInit:     {StateJoining, StateShutdown},
		StateJoining:  {StateElection, StateShutdown},
		StateElection: {StateSyncing, StateShutdown},
		StateSyncing:  {StateActive, StateShutdown},
		StateActive:   {StateShutdown},
		StateShutdown: {}, // Terminal state - no transitions allowed
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}

	return false
}

// leaseSeconds is the master lease duration handed to the election agent.
func (c *Coordinator) leaseSeconds() int64 {
	seconds := int64(c.cfg.MasterLeaseTTL.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	return seconds
}

// ensureKVBucket creates or opens a KV bucket with the specified TTL.
//
// Uses retry logic to handle race conditions when multiple nodes try to
// create the same bucket concurrently.
func (c *Coordinator) ensureKVBucket(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	cfg := jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1, // Keep only latest value
	}

	if ttl > 0 {
		cfg.TTL = ttl
	}

	const maxRetries = 5
	kv, err := natsutil.EnsureKVBucketWithRetry(ctx, js, cfg, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open KV bucket %s: %w", bucket, err)
	}

	return kv, nil
}
