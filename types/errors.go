package types

import "errors"

// Sentinel errors shared across packages.
var (
	// ErrConnectivity indicates a NATS connectivity failure. Transport and
	// coordination code wraps the underlying error with this sentinel so
	// callers can distinguish connectivity loss from protocol failures.
	ErrConnectivity = errors.New("connectivity error")

	// ErrNoMaster indicates no elected master is currently known.
	ErrNoMaster = errors.New("no master known")

	// ErrNotMaster indicates the receiving node is not the elected master.
	ErrNotMaster = errors.New("not the elected master")
)
