package searcher

import (
	"hplanning/pomdp"
)

// qnode is the action level of the flat tree: one per (vnode, action), with
// sparse observation children.
type qnode struct {
	value      Statistic
	applicable bool
	children   map[int]*vnode

	// Thompson-sampling payloads, nil unless the variant is active.
	observations *dirichlet
	reward       *normalGamma
	updateCount  int
}

func newQNode(thompson bool) *qnode {
	q := &qnode{children: make(map[int]*vnode)}
	if thompson {
		q.observations = newDirichlet()
		q.reward = newNormalGamma()
	}
	return q
}

func (q *qnode) child(observation int) *vnode {
	return q.children[observation]
}

func (q *qnode) setChild(observation int, v *vnode) {
	q.children[observation] = v
}

// update records one simulated transition for the Thompson posteriors.
func (q *qnode) update(observation int, reward float64) {
	if q.observations == nil {
		return
	}
	q.observations.Add(observation)
	q.reward.Add(reward)
	q.updateCount++
}

// vnode is the belief level of the flat tree: a value statistic, a fixed
// array of action children, a local particle set, and the history
// fingerprint it was expanded under.
type vnode struct {
	value      Statistic
	children   []*qnode
	beliefs    pomdp.BeliefState
	beliefHash uint64

	// Per-state cumulative-reward posteriors for Thompson sampling.
	cumulative map[uint64]*normalGamma
}

func newVNode(numActions int, beliefHash uint64, thompson bool) *vnode {
	v := &vnode{
		children:   make([]*qnode, numActions),
		beliefHash: beliefHash,
	}
	for a := range v.children {
		v.children[a] = newQNode(thompson)
	}
	if thompson {
		v.cumulative = make(map[uint64]*normalGamma)
	}
	return v
}

func (v *vnode) child(action int) *qnode {
	return v.children[action]
}

// cumulativeReward returns the posterior for the given state, creating it
// on first touch.
func (v *vnode) cumulativeReward(state pomdp.State) *normalGamma {
	h := state.Hash()
	ng, ok := v.cumulative[h]
	if !ok {
		ng = newNormalGamma()
		v.cumulative[h] = ng
	}
	return ng
}

// thompson samples the node's cumulative-reward value by drawing one of the
// per-state posteriors with probability proportional to its update count.
func (v *vnode) thompson(sampling bool, rng *pomdp.RNG) float64 {
	total := 0
	for _, ng := range v.cumulative {
		total += ng.Count()
	}
	if total == 0 {
		return newNormalGamma().Sample(sampling, rng)
	}
	i := rng.Intn(total)
	for _, ng := range v.cumulative {
		if i < ng.Count() {
			return ng.Sample(sampling, rng)
		}
		i -= ng.Count()
	}
	panic("unreachable")
}

// free releases every particle under v, skipping the retained subtree when
// re-rooting. Merged transposition nodes are visited once. Returns the
// number of nodes released.
func free(v *vnode, sim pomdp.Simulator, retain *vnode) int {
	return freeRec(v, sim, retain, make(map[*vnode]bool))
}

func freeRec(v *vnode, sim pomdp.Simulator, retain *vnode, seen map[*vnode]bool) int {
	if v == nil || v == retain || seen[v] {
		return 0
	}
	seen[v] = true
	released := 1
	v.beliefs.Free(sim)
	for _, q := range v.children {
		for _, child := range q.children {
			released += freeRec(child, sim, retain, seen)
		}
	}
	return released
}
