package shardalloc

import (
	"errors"

	"github.com/arloliu/shardalloc/types"
)

// Sentinel errors returned by the Coordinator.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNATSConnectionRequired is returned when NATS connection is nil.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")

	// ErrAlreadyStarted is returned when Start is called on an already running coordinator.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrNotStarted is returned when Stop is called on a coordinator that hasn't been started.
	ErrNotStarted = errors.New("coordinator not started")

	// ErrElectionFailed is returned when master election fails.
	ErrElectionFailed = errors.New("master election failed")
)

// Re-export shared sentinel errors from the types package so callers can
// match them without importing types directly.
var (
	// ErrConnectivity indicates a NATS connectivity failure.
	ErrConnectivity = types.ErrConnectivity

	// ErrNoMaster indicates no elected master is currently known.
	ErrNoMaster = types.ErrNoMaster

	// ErrNotMaster indicates this node is not the elected master.
	ErrNotMaster = types.ErrNotMaster
)
