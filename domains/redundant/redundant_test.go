package redundant

import (
	"testing"

	"hplanning/pomdp"

	"github.com/stretchr/testify/require"
)

func TestObservationIgnoresObject(t *testing.T) {
	w := New(DefaultConfig())

	a := &State{AgentX: 1, AgentY: 1, ObjectX: 0, ObjectY: 0}
	b := &State{AgentX: 1, AgentY: 1, ObjectX: 7, ObjectY: 7}
	require.Equal(t, w.Abstraction(a), w.Abstraction(b), "the object must never leak into the observation")
}

func TestQuadrants(t *testing.T) {
	w := New(DefaultConfig())

	require.Equal(t, 0, w.Abstraction(&State{AgentX: 0, AgentY: 0}))
	require.Equal(t, 1, w.Abstraction(&State{AgentX: 4, AgentY: 0}))
	require.Equal(t, 2, w.Abstraction(&State{AgentX: 0, AgentY: 4}))
	require.Equal(t, 3, w.Abstraction(&State{AgentX: 4, AgentY: 4}))
}

func TestStateAbstractionCollapsesHashes(t *testing.T) {
	a := &State{AgentX: 1, AgentY: 1, ObjectX: 0, ObjectY: 0, abstract: true}
	b := &State{AgentX: 1, AgentY: 1, ObjectX: 5, ObjectY: 5, abstract: true}
	require.Equal(t, a.Hash(), b.Hash(), "with state abstraction the object drops out of the fingerprint")

	c := &State{AgentX: 1, AgentY: 1, ObjectX: 0, ObjectY: 0}
	d := &State{AgentX: 1, AgentY: 1, ObjectX: 5, ObjectY: 5}
	require.NotEqual(t, c.Hash(), d.Hash(), "without it the object distinguishes states")
}

func TestGoalTerminates(t *testing.T) {
	w := New(DefaultConfig())
	s := &State{AgentX: 1, AgentY: 0, ObjectX: 3, ObjectY: 3}
	obs, reward, terminal := w.Step(s, ActionLeft)
	require.True(t, terminal)
	require.Equal(t, w.cfg.GoalReward, reward)
	require.Equal(t, 0, obs)
}

func TestStepMovesOnlyAgentDeterministically(t *testing.T) {
	w := New(DefaultConfig())
	s := &State{AgentX: 4, AgentY: 4, ObjectX: 3, ObjectY: 3}
	w.Step(s, ActionUp)
	require.Equal(t, 4, s.AgentX)
	require.Equal(t, 3, s.AgentY, "the agent's move is deterministic")
}

func TestLocalMovePreservesHistory(t *testing.T) {
	w := New(DefaultConfig())
	history := pomdp.NewHistory(-1)
	s := &State{AgentX: 2, AgentY: 2, ObjectX: 0, ObjectY: 0}
	obs := w.Abstraction(s)
	require.True(t, w.LocalMove(s, history, obs))
	require.Equal(t, obs, w.Abstraction(s), "perturbing the object cannot change the observation")
	require.Equal(t, 2, s.AgentX)
	require.Equal(t, 2, s.AgentY)
}

func TestValidatePanicsOutOfBounds(t *testing.T) {
	w := New(DefaultConfig())
	require.Panics(t, func() {
		w.Validate(&State{AgentX: -1, AgentY: 0})
	})
}
