package types

import "fmt"

// DecisionType is the outcome of one allocation check.
type DecisionType int

const (
	// DecisionNo vetoes the proposed placement.
	DecisionNo DecisionType = iota

	// DecisionThrottle defers the proposed placement without vetoing it;
	// the caller should retry later without penalty.
	DecisionThrottle

	// DecisionYes permits the proposed placement.
	DecisionYes
)

// String returns the string representation of the decision type.
func (t DecisionType) String() string {
	switch t {
	case DecisionNo:
		return "NO"
	case DecisionThrottle:
		return "THROTTLE"
	case DecisionYes:
		return "YES"
	default:
		return "UNKNOWN"
	}
}

// Decision is the immutable outcome of one allocation check: the decision
// type, the label of the decider that produced it, and a human-readable
// explanation.
//
// Decisions never carry errors. A mis-evaluated constraint surfaces as NO
// or THROTTLE with an explanation, so one decider can never abort an entire
// allocation pass.
type Decision struct {
	typ     DecisionType
	label   string
	explain string
}

// NewDecision creates a decision with a formatted explanation.
//
// Parameters:
//   - typ: Decision outcome (YES, NO, or THROTTLE)
//   - label: Name of the decider producing the decision
//   - format: Explanation format string with optional args
//
// Returns:
//   - Decision: Immutable decision value
func NewDecision(typ DecisionType, label, format string, args ...any) Decision {
	return Decision{typ: typ, label: label, explain: fmt.Sprintf(format, args...)}
}

// Type returns the decision outcome.
func (d Decision) Type() DecisionType {
	return d.typ
}

// Label returns the name of the decider that produced the decision.
func (d Decision) Label() string {
	return d.label
}

// Explanation returns the human-readable reason for the decision.
func (d Decision) Explanation() string {
	return d.explain
}

// String returns "TYPE(label): explanation".
func (d Decision) String() string {
	if d.label == "" {
		return d.typ.String()
	}

	return fmt.Sprintf("%s(%s): %s", d.typ, d.label, d.explain)
}

// Decisions accumulates the outcomes of multiple deciders for one check.
//
// The aggregate outcome is YES only if every decision is YES. Any NO vetoes
// the check regardless of other outcomes; THROTTLE defers without vetoing.
type Decisions []Decision

// Add appends a decision and returns the extended slice.
func (ds Decisions) Add(d Decision) Decisions {
	return append(ds, d)
}

// Type returns the aggregate outcome: NO if any decision is NO, otherwise
// THROTTLE if any decision is THROTTLE, otherwise YES.
func (ds Decisions) Type() DecisionType {
	result := DecisionYes
	for _, d := range ds {
		switch d.Type() {
		case DecisionNo:
			return DecisionNo
		case DecisionThrottle:
			result = DecisionThrottle
		case DecisionYes:
		}
	}

	return result
}
