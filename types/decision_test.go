package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecision_Accessors(t *testing.T) {
	d := NewDecision(DecisionNo, "awareness", "too many copies in zone [%s]", "us-east-1a")

	require.Equal(t, DecisionNo, d.Type())
	require.Equal(t, "awareness", d.Label())
	require.Equal(t, "too many copies in zone [us-east-1a]", d.Explanation())
	require.Equal(t, "NO(awareness): too many copies in zone [us-east-1a]", d.String())
}

func TestDecisions_Aggregate(t *testing.T) {
	yes := NewDecision(DecisionYes, "a", "ok")
	no := NewDecision(DecisionNo, "b", "vetoed")
	throttle := NewDecision(DecisionThrottle, "c", "later")

	t.Run("all yes aggregates to yes", func(t *testing.T) {
		ds := Decisions{}.Add(yes).Add(yes)
		require.Equal(t, DecisionYes, ds.Type())
	})

	t.Run("any no vetoes", func(t *testing.T) {
		ds := Decisions{}.Add(yes).Add(no).Add(throttle)
		require.Equal(t, DecisionNo, ds.Type())
	})

	t.Run("throttle defers without vetoing", func(t *testing.T) {
		ds := Decisions{}.Add(yes).Add(throttle)
		require.Equal(t, DecisionThrottle, ds.Type())
	})

	t.Run("empty aggregates to yes", func(t *testing.T) {
		require.Equal(t, DecisionYes, Decisions{}.Type())
	})
}
