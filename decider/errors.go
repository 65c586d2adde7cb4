package decider

import "errors"

// ErrInvalidRebalanceType indicates an unrecognized rebalance policy string.
var ErrInvalidRebalanceType = errors.New("invalid cluster rebalance type")
