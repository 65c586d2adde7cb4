package types

// State represents the coordinator lifecycle state.
//
// States follow a defined progression during normal operation:
//
//	StateInit → StateJoining → StateElection → StateSyncing → StateActive
//
// Shutdown is the terminal state.
type State int

const (
	// StateInit is the initial state before any operations.
	StateInit State = iota

	// StateJoining indicates the node is connecting to the coordination
	// buckets.
	StateJoining

	// StateElection indicates the node is participating in master election.
	StateElection

	// StateSyncing indicates the node is waiting for its first published
	// cluster state.
	StateSyncing

	// StateActive indicates normal operation with a live cluster state.
	StateActive

	// StateShutdown indicates graceful shutdown is in progress.
	StateShutdown
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateJoining:
		return "Joining"
	case StateElection:
		return "Election"
	case StateSyncing:
		return "Syncing"
	case StateActive:
		return "Active"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
