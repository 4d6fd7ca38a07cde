package searcher

import (
	"hplanning/pomdp"
)

// Planner is the contract exposed to the experiment driver.
type Planner interface {
	// SelectAction searches from the current belief and commits to an
	// action.
	SelectAction() int
	// Update advances the planner past a real step. It returns false on
	// particle depletion, in which case the driver should finish the
	// episode with a random policy.
	Update(action, observation int, state pomdp.State) bool
	TreeSize() int
	TreeDepth() int
}

// selectRandomAction is the flat planner's rollout policy: smart
// knowledge prefers the domain's preferred actions, legal knowledge draws
// from the legal set, pure knowledge draws uniformly.
func selectRandomAction(sim pomdp.Simulator, state pomdp.State, history *pomdp.History, k Knowledge, rng *pomdp.RNG) int {
	if k.RolloutLevel >= KnowledgeSmart {
		if preferred := sim.GeneratePreferred(state, history); len(preferred) > 0 {
			return preferred[rng.Intn(len(preferred))]
		}
	}
	if k.RolloutLevel >= KnowledgeLegal {
		if legal := sim.GenerateLegal(state); len(legal) > 0 {
			return legal[rng.Intn(len(legal))]
		}
	}
	return rng.Intn(sim.NumActions())
}
