package shardstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/shardalloc/internal/logger"
	"github.com/arloliu/shardalloc/internal/master"
	"github.com/arloliu/shardalloc/internal/metrics"
	"github.com/arloliu/shardalloc/internal/routing"
	"github.com/arloliu/shardalloc/types"
)

// MasterResolver reports the currently known master node ID.
//
// Returns:
//   - string: Master node ID
//   - bool: false when no master is currently known
type MasterResolver func() (string, bool)

// Action reports shard state transitions to the elected master and, on the
// master, feeds received reports into the task pipeline.
//
// Action is safe for concurrent use. Sends run in background goroutines so
// the reporting node never blocks its own shard processing on master
// acknowledgment; Close waits for in-flight sends.
type Action struct {
	transport     types.Transport
	resolveMaster MasterResolver
	logger        types.Logger
	metrics       types.ShardStateMetrics

	wg sync.WaitGroup
}

// NewAction creates a shard-state action over the given transport.
//
// Parameters:
//   - transport: Messaging boundary to the master (required)
//   - resolver: Current-master lookup (required)
//   - log: Logger (nil for no-op)
//   - collector: Shard report metrics (nil for no-op)
//
// Returns:
//   - *Action: Initialized action
func NewAction(transport types.Transport, resolver MasterResolver, log types.Logger, collector types.ShardStateMetrics) *Action {
	if log == nil {
		log = logger.NewNop()
	}
	if collector == nil {
		collector = metrics.NewNop()
	}

	return &Action{
		transport:     transport,
		resolveMaster: resolver,
		logger:        log,
		metrics:       collector,
	}
}

// ShardFailed reports a failed shard copy to the master.
//
// The send happens asynchronously; exactly one listener callback fires with
// the outcome:
//   - OnNoMaster when no master is known (no send is attempted)
//   - OnFailure when delivery failed, timed out, or the master rejected
//     the report (including a master that lost its role mid-flight, which
//     surfaces wrapped in types.ErrNotMaster so the caller can re-resolve)
//   - OnSuccess when the master acknowledged the report
//
// Parameters:
//   - ctx: Context bounding the send
//   - entry: The failure report
//   - timeout: Per-send timeout (0 for none beyond ctx)
//   - listener: Outcome receiver (required)
func (a *Action) ShardFailed(ctx context.Context, entry types.ShardEntry, timeout time.Duration, listener types.ShardStateListener) {
	masterNodeID, ok := a.resolveMaster()
	if !ok {
		a.metrics.RecordShardReport("failed", "no_master")
		a.logger.Warn("no master known for shard-failed report", "entry", entry.String())
		listener.OnNoMaster()

		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sendShardFailed(ctx, masterNodeID, entry, timeout, listener)
	}()
}

func (a *Action) sendShardFailed(ctx context.Context, masterNodeID string, entry types.ShardEntry, timeout time.Duration, listener types.ShardStateListener) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := a.transport.SendShardFailed(ctx, masterNodeID, entry)
	if err != nil {
		a.metrics.RecordShardReport("failed", "error")
		a.logger.Warn("shard-failed report delivery failed",
			"master", masterNodeID,
			"entry", entry.String(),
			"error", err,
		)
		listener.OnFailure(masterNodeID, err)

		return
	}

	switch resp.Status {
	case types.StatusOK:
		a.metrics.RecordShardReport("failed", "ok")
		listener.OnSuccess()
	case types.StatusNotMaster:
		a.metrics.RecordShardReport("failed", "not_master")
		listener.OnFailure(masterNodeID, fmt.Errorf("node [%s] rejected the report: %w", masterNodeID, types.ErrNotMaster))
	default:
		a.metrics.RecordShardReport("failed", "rejected")
		listener.OnFailure(masterNodeID, fmt.Errorf("master [%s] rejected shard-failed report: %s", masterNodeID, resp.Error))
	}
}

// ShardStarted reports a started shard copy to the master.
//
// Best effort: delivery failures are logged, never escalated. A missed
// started report is recovered by a later state sync.
//
// Parameters:
//   - ctx: Context bounding the send
//   - entry: The started report
func (a *Action) ShardStarted(ctx context.Context, entry types.ShardEntry) {
	masterNodeID, ok := a.resolveMaster()
	if !ok {
		a.metrics.RecordShardReport("started", "no_master")
		a.logger.Debug("no master known for shard-started report", "entry", entry.String())

		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		if err := a.transport.SendShardStarted(ctx, masterNodeID, entry); err != nil {
			a.metrics.RecordShardReport("started", "error")
			a.logger.Warn("shard-started report delivery failed",
				"master", masterNodeID,
				"entry", entry.String(),
				"error", err,
			)

			return
		}
		a.metrics.RecordShardReport("started", "ok")
	}()
}

// RegisterMasterHandlers installs the master-side request handlers.
//
// Started reports enqueue at urgent priority and are acknowledged
// unconditionally. Failed reports enqueue at high priority; the
// acknowledgment waits for the batch outcome, so a reporter's OnSuccess
// means the failure is committed in a published cluster state. A node that
// is not currently master answers failed reports with a not-master status
// so the reporter re-resolves and retries elsewhere. The same status covers
// the demotion window: a report accepted while master but dropped because
// the pipeline stopped answers not-master, not a generic error.
//
// Parameters:
//   - svc: Routing service feeding the task pipeline (required)
//   - isMaster: Reports whether this node currently holds the master role
//
// Returns:
//   - error: Handler registration error
func (a *Action) RegisterMasterHandlers(svc *routing.Service, isMaster func() bool) error {
	err := a.transport.HandleShardStarted(func(_ context.Context, entry types.ShardEntry) types.TransportResponse {
		if !isMaster() {
			// Acknowledged anyway: started reports are best effort and
			// the reporter does not act on the response.
			return types.TransportResponse{Status: types.StatusOK}
		}

		if err := svc.SubmitShardStarted(entry, nil); err != nil {
			a.logger.Warn("failed to enqueue shard-started report", "entry", entry.String(), "error", err)
		}

		return types.TransportResponse{Status: types.StatusOK}
	})
	if err != nil {
		return fmt.Errorf("failed to register shard-started handler: %w", err)
	}

	err = a.transport.HandleShardFailed(func(ctx context.Context, entry types.ShardEntry) types.TransportResponse {
		if !isMaster() {
			return types.TransportResponse{Status: types.StatusNotMaster, Error: types.ErrNotMaster.Error()}
		}

		outcome := make(chan error, 1)
		if err := svc.SubmitShardFailed(entry, func(err error) { outcome <- err }); err != nil {
			return failedResponse(err)
		}

		select {
		case err := <-outcome:
			if err != nil {
				return failedResponse(err)
			}

			return types.TransportResponse{Status: types.StatusOK}
		case <-ctx.Done():
			return types.TransportResponse{Status: types.StatusError, Error: ctx.Err().Error()}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register shard-failed handler: %w", err)
	}

	return nil
}

// failedResponse maps a pipeline error to the shard-failed response.
//
// A stopped pipeline means the node lost the master role with the report
// still queued or not yet accepted, so the reporter gets a not-master
// status and re-resolves instead of retrying here.
func failedResponse(err error) types.TransportResponse {
	if errors.Is(err, master.ErrNotStarted) {
		return types.TransportResponse{Status: types.StatusNotMaster, Error: types.ErrNotMaster.Error()}
	}

	return types.TransportResponse{Status: types.StatusError, Error: err.Error()}
}

// Close waits for in-flight sends to finish.
func (a *Action) Close() error {
	a.wg.Wait()

	return nil
}
