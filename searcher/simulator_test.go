package searcher

import (
	"hplanning/pomdp"
)

// testState is a depth counter.
type testState struct {
	depth int
}

func (s *testState) Hash() uint64 { return uint64(s.depth) }

// suboptimalGap is the per-step reward shortfall of a non-optimal action.
const suboptimalGap = 0.03

// testSimulator is the reference oracle for planner tests. At step t the
// optimal action is t modulo the action count and earns reward 1; any other
// action earns 1-suboptimalGap. Observations are uniform noise and the
// episode ends after maxDepth+1 steps.
type testSimulator struct {
	actions      int
	observations int
	maxDepth     int
	rng          *pomdp.RNG
	flags        pomdp.Flags
}

var _ pomdp.Simulator = (*testSimulator)(nil)

func newTestSimulator(actions, observations, maxDepth int) *testSimulator {
	return &testSimulator{
		actions:      actions,
		observations: observations,
		maxDepth:     maxDepth,
		rng:          pomdp.NewRNG(99),
	}
}

func (s *testSimulator) NumActions() int      { return s.actions }
func (s *testSimulator) NumObservations() int { return s.observations }
func (s *testSimulator) Discount() float64    { return 1 }
func (s *testSimulator) RewardRange() float64 { return 1 }
func (s *testSimulator) Flags() pomdp.Flags   { return s.flags }

func (s *testSimulator) CreateStartState() pomdp.State { return &testState{} }
func (s *testSimulator) FreeState(pomdp.State)         {}

func (s *testSimulator) Copy(state pomdp.State) pomdp.State {
	copied := *state.(*testState)
	return &copied
}

func (s *testSimulator) Step(state pomdp.State, action int) (int, float64, bool) {
	st := state.(*testState)
	reward := 1.0
	if action != st.depth%s.actions {
		reward = 1 - suboptimalGap
	}
	st.depth++
	observation := s.rng.Intn(s.observations)
	return observation, reward, st.depth > s.maxDepth
}

func (s *testSimulator) Abstraction(state pomdp.State) int {
	return 0
}

func (s *testSimulator) Validate(state pomdp.State) {
	if state.(*testState).depth < 0 {
		panic("negative depth")
	}
}

func (s *testSimulator) LocalMove(pomdp.State, *pomdp.History, int) bool { return true }

func (s *testSimulator) GenerateLegal(pomdp.State) []int {
	legal := make([]int, s.actions)
	for a := range legal {
		legal[a] = a
	}
	return legal
}

func (s *testSimulator) GeneratePreferred(pomdp.State, *pomdp.History) []int { return nil }

// MeanValue is the expected return of the uniform random policy.
func (s *testSimulator) MeanValue() float64 {
	perStep := 1 - suboptimalGap*float64(s.actions-1)/float64(s.actions)
	return perStep * float64(s.maxDepth+1)
}

// OptimalValue is the return of always playing the optimal action.
func (s *testSimulator) OptimalValue() float64 {
	return float64(s.maxDepth + 1)
}
