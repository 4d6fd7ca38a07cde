package pomdp

// State is an opaque domain state. Only its simulator can create, copy,
// step, or destroy it; planners see the hash alone.
type State interface {
	Hash() uint64
}

// Flags select planner-visible capabilities of a domain. They are plain
// fields on the interface value rather than inherited behavior.
type Flags struct {
	// ActionAbstraction enables macro-actions over abstract observations.
	ActionAbstraction bool
	// StateAbstraction lets the belief fingerprint follow the whole history
	// instead of the memory-1 (observation, depth) abstraction.
	StateAbstraction bool
	// FullyObservable marks MDPs being planned as POMDPs; the flat planner
	// then reseeds its root belief from the real state on every update.
	FullyObservable bool
	// HierarchicalPlanning marks domains meant for the hierarchical planner.
	HierarchicalPlanning bool
}

// Simulator is the transition and reward oracle consumed by the planners.
type Simulator interface {
	NumActions() int
	NumObservations() int
	// Discount is in (0, 1].
	Discount() float64
	RewardRange() float64
	Flags() Flags

	// CreateStartState draws a start state; the caller owns it.
	CreateStartState() State
	FreeState(State)
	Copy(State) State

	// Step mutates state under action. The observation is in
	// [0, NumObservations); terminal reports episode end.
	Step(state State, action int) (observation int, reward float64, terminal bool)

	// Abstraction maps a state to its abstract observation (region id).
	Abstraction(State) int

	// Validate panics if the state violates domain invariants.
	Validate(State)

	// LocalMove perturbs state to a nearby state consistent with the
	// history, returning false when no such perturbation exists.
	LocalMove(state State, history *History, stepObs int) bool

	// GenerateLegal lists the actions applicable in state.
	GenerateLegal(State) []int

	// GeneratePreferred lists domain-preferred actions, or nil when the
	// domain has no preference knowledge.
	GeneratePreferred(State, *History) []int
}
