package searcher

import (
	"testing"

	"hplanning/domains/rooms"
	"hplanning/pomdp"

	"github.com/stretchr/testify/require"
)

func roomsConfig() rooms.Config {
	cfg := rooms.DefaultConfig()
	cfg.RoomsX = 2
	cfg.RoomsY = 2
	cfg.RoomSize = 3
	cfg.ActionAbstraction = true
	return cfg
}

func startObservation(sim pomdp.Simulator) int {
	state := sim.CreateStartState()
	defer sim.FreeState(state)
	return sim.Abstraction(state)
}

func newRoomsPlanner(t *testing.T, params Params) (*HierarchicalMCTS, error) {
	t.Helper()
	sim := rooms.New(roomsConfig())
	return NewHierarchicalMCTS(sim, params, startObservation(sim))
}

func hierarchicalParams() Params {
	params := DefaultParams()
	params.NumSimulations = 500
	params.NumStartStates = 8
	params.MaxDepth = 50
	params.WarmupTrajectories = 100
	params.WarmupSteps = 50
	return params
}

func TestTaskGraphConstruction(t *testing.T) {
	g := newTaskGraph(3, 4, true, 0)

	require.Len(t, g.subtasks[rootTask], 4, "the root task should have one macro child per observation")
	for o := 0; o < 4; o++ {
		m := g.macroAction(o)
		require.Equal(t, 3+o, m)
		require.False(t, g.primitive(m))
		require.Len(t, g.subtasks[m], 3, "a macro's children are the primitive actions")
		require.True(t, g.goals[m][o], "a macro's goal is its target observation")
	}
	for a := 0; a < 3; a++ {
		require.True(t, g.primitive(a))
	}
	require.True(t, g.goals[rootTask][0])
}

func TestTaskGraphWithoutAbstraction(t *testing.T) {
	g := newTaskGraph(3, 4, false, 0)
	require.Equal(t, []macroAction{0, 1, 2}, g.subtasks[rootTask], "without abstraction the root's children are the primitives")
}

func TestTerminate(t *testing.T) {
	g := newTaskGraph(2, 3, true, 0)

	require.True(t, g.terminate(g.macroAction(1), 1))
	require.False(t, g.terminate(g.macroAction(1), 2))
	require.False(t, g.terminate(0, 0), "primitives never terminate")
	require.False(t, g.terminate(g.macroAction(1), -1), "no observation yet means no termination")
}

func TestUpdateConnectionSymmetry(t *testing.T) {
	g := newTaskGraph(2, 4, true, 0)
	g.updateConnection(1, 3)

	require.True(t, g.isApplicable(1, g.macroAction(3)))
	require.True(t, g.isApplicable(3, g.macroAction(1)))
	require.False(t, g.isApplicable(1, g.macroAction(2)))

	// Primitives and the root task are always applicable.
	require.True(t, g.isApplicable(1, 0))
	require.True(t, g.isApplicable(1, rootTask))
}

func TestEraseGoal(t *testing.T) {
	g := newTaskGraph(2, 3, true, 0)
	g.eraseGoal(0)
	require.False(t, g.terminate(g.macroAction(0), 0))
	require.False(t, g.goals[rootTask][0])
}

func TestConfigurationMismatchRejected(t *testing.T) {
	sim := newTestSimulator(2, 0, 0)
	sim.flags.ActionAbstraction = true
	_, err := NewHierarchicalMCTS(sim, DefaultParams(), -1)
	require.Error(t, err, "action abstraction with zero observations must be rejected at construction")
}

func TestWarmupApplicabilitySymmetry(t *testing.T) {
	m, err := newRoomsPlanner(t, hierarchicalParams())
	require.NoError(t, err)

	numObs := m.sim.NumObservations()
	learned := 0
	for o1 := 0; o1 < numObs; o1++ {
		for o2 := 0; o2 < numObs; o2++ {
			a, b := m.applicableSymmetric(o1, o2)
			require.Equal(t, a, b, "applicability must be symmetric for (%d, %d)", o1, o2)
			if a {
				learned++
			}
		}
	}
	require.Greater(t, learned, 0, "warmup should have discovered some connections")
}

func TestGreedyMacroExcludesTerminating(t *testing.T) {
	m, err := newRoomsPlanner(t, hierarchicalParams())
	require.NoError(t, err)

	// All macro children explored; the macro targeting the current
	// observation terminates there and must not be selected.
	data := newSubtaskData()
	data.value.Set(0, 100)
	for _, child := range m.graph.subtasks[rootTask] {
		data.qvalue(child).Set(1, 10)
	}
	current := 2
	for i := 0; i < 50; i++ {
		got := m.greedyMacro(rootTask, current, data, true)
		require.NotEqual(t, m.graph.macroAction(current), got, "a macro terminating at the current observation must be excluded")
	}
	for i := 0; i < 50; i++ {
		got := m.randomChild(rootTask, current)
		require.NotEqual(t, m.graph.macroAction(current), got, "random descent must exclude terminating macros")
	}
}

func TestGreedyMacroZeroCountScan(t *testing.T) {
	m, err := newRoomsPlanner(t, hierarchicalParams())
	require.NoError(t, err)

	data := newSubtaskData()
	data.value.Set(0, 10)
	children := m.graph.subtasks[rootTask]
	for i, child := range children {
		if i == len(children)-1 {
			continue // leave the last child unexplored
		}
		data.qvalue(child).Set(1, 5)
	}
	got := m.greedyMacro(rootTask, -1, data, true)
	require.Equal(t, children[len(children)-1], got, "the first zero-count applicable child is returned immediately")
}

func TestHierarchicalEpisode(t *testing.T) {
	sim := rooms.New(roomsConfig())
	params := hierarchicalParams()
	params.NumSimulations = 200
	m, err := NewHierarchicalMCTS(sim, params, startObservation(sim))
	require.NoError(t, err)

	real := rooms.New(roomsConfig())
	state := real.CreateStartState()

	for step := 0; step < 10; step++ {
		action := m.SelectAction()
		require.GreaterOrEqual(t, action, 0)
		require.Less(t, action, sim.NumActions(), "SelectAction must return a primitive")
		require.Greater(t, m.TreeSize(), 0, "search should have grown the subtask tables")

		observation, _, terminal := real.Step(state, action)
		if terminal {
			break
		}
		require.True(t, m.Update(action, observation, state), "the hierarchical planner never depletes")
		require.Equal(t, 0, m.TreeSize(), "update discards the whole tree")
	}
	real.FreeState(state)
}

func TestSubtaskCountInvariant(t *testing.T) {
	m, err := newRoomsPlanner(t, hierarchicalParams())
	require.NoError(t, err)
	m.search()

	for _, byHash := range m.tree {
		for _, data := range byHash {
			for _, q := range data.qvalues {
				require.GreaterOrEqual(t, data.value.Count(), q.Count(),
					"a subtask's value count can never trail a child count")
			}
		}
	}
}

func TestCachedExitsAreSound(t *testing.T) {
	sim := rooms.New(roomsConfig())
	params := hierarchicalParams()
	params.NumSimulations = 2000
	params.Converged = 20
	params.CacheRate = 0.5
	m, err := NewHierarchicalMCTS(sim, params, startObservation(sim))
	require.NoError(t, err)

	m.search()

	cached := 0
	for a, byHash := range m.tree {
		for _, data := range byHash {
			for _, ret := range data.cache {
				cached++
				require.True(t, ret.terminal || m.graph.goals[a][ret.lastObs],
					"a cached result must be a true exit of macro %d", a)

				pool := m.exitPool[ret.beliefHash]
				require.NotNil(t, pool, "every cached exit needs states in the exit pool")
				require.False(t, pool.Empty())
				for _, state := range pool.Samples() {
					require.Equal(t, ret.lastObs, sim.Abstraction(state),
						"exit states must decode to the cached abstract observation")
				}
			}
		}
	}
	require.Greater(t, cached, 0, "the converged subtasks should have cached exits")
}

func TestConvergedZeroIsDeterministic(t *testing.T) {
	run := func() []int {
		sim := rooms.New(roomsConfig())
		real := rooms.New(roomsConfig())
		params := hierarchicalParams()
		params.NumSimulations = 100
		params.Converged = 0

		m, err := NewHierarchicalMCTS(sim, params, startObservation(sim))
		require.NoError(t, err)

		state := real.CreateStartState()
		defer real.FreeState(state)

		var actions []int
		for step := 0; step < 8; step++ {
			action := m.SelectAction()
			actions = append(actions, action)
			observation, _, terminal := real.Step(state, action)
			if terminal {
				break
			}
			m.Update(action, observation, state)
		}
		return actions
	}

	require.Equal(t, run(), run(), "with caching disabled, equal seeds must give equal trajectories")
}

func TestHierarchicalUpdateReseeds(t *testing.T) {
	sim := rooms.New(roomsConfig())
	m, err := NewHierarchicalMCTS(sim, hierarchicalParams(), startObservation(sim))
	require.NoError(t, err)

	state := &rooms.State{X: 1, Y: 1}
	require.True(t, m.Update(0, sim.Abstraction(state), state))
	require.Equal(t, 1, m.rootBeliefs.NumSamples(), "the root belief holds one copy of the real state")
	require.Empty(t, m.exitPool, "update clears the exit pool")
}

func TestSelectPrimitivePassThrough(t *testing.T) {
	m, err := newRoomsPlanner(t, hierarchicalParams())
	require.NoError(t, err)
	require.Equal(t, 2, m.selectPrimitiveAction(2))
}

var _ pomdp.State = (*rooms.State)(nil)
