package types

import "fmt"

// ShardEntry is the wire and task payload of one shard-state report.
//
// A reporting node creates the entry, the master-side executor consumes it
// exactly once, and it is not retained after the cluster-state task
// completes.
type ShardEntry struct {
	// Routing is the reporter's snapshot of the shard copy.
	Routing ShardRouting `json:"routing"`

	// IndexUUID guards against reports for a deleted-and-recreated index
	// with the same name.
	IndexUUID string `json:"index_uuid"`

	// Message is free-text context supplied by the reporter.
	Message string `json:"message,omitempty"`

	// Failure is the failure cause for shard-failed reports, "" for
	// shard-started reports.
	Failure string `json:"failure,omitempty"`
}

// String returns a short human-readable description of the entry.
func (e ShardEntry) String() string {
	return fmt.Sprintf("shard entry [%s], index uuid [%s], message [%s]", e.Routing, e.IndexUUID, e.Message)
}

// ShardStateListener receives the outcome of a shard-failed report.
//
// Exactly one of the callbacks is invoked per report. Callbacks run on the
// transport's response goroutine and must not block.
type ShardStateListener interface {
	// OnSuccess is called when the master acknowledged the report.
	OnSuccess()

	// OnNoMaster is called when no master is currently known. The caller
	// decides whether and when to retry against a newly elected master;
	// this layer does not retry on its own.
	OnNoMaster()

	// OnFailure is called when delivery to the master failed or the
	// master rejected the report.
	//
	// Parameters:
	//   - masterNodeID: The master the report was sent to
	//   - err: The delivery or processing error
	OnFailure(masterNodeID string, err error)
}
