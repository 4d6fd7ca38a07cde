package searcher

import (
	"fmt"
	"time"

	"hplanning/pomdp"

	"github.com/rs/zerolog/log"
)

// FlatMCTS is the classic POMCP planner: a tree of alternating belief and
// action nodes grown by simulation from a root particle set.
type FlatMCTS struct {
	sim     pomdp.Simulator
	params  Params
	rng     *pomdp.RNG
	ucb     *ucbTable
	history *pomdp.History
	root    *vnode

	// beliefPool merges nodes whose bounded-memory histories collide.
	// Only populated when MemorySize >= 0.
	beliefPool map[uint64]*vnode

	numNodes  int
	treeDepth int
}

var _ Planner = (*FlatMCTS)(nil)

func NewFlatMCTS(sim pomdp.Simulator, params Params, firstObservation int) *FlatMCTS {
	m := &FlatMCTS{
		sim:        sim,
		params:     params,
		rng:        pomdp.NewRNG(params.Seed),
		ucb:        newUCBTable(params.ExplorationConstant),
		history:    pomdp.NewHistory(params.MemorySize),
		beliefPool: make(map[uint64]*vnode),
	}
	m.history.SetInitial(firstObservation)

	state := sim.CreateStartState()
	m.root = m.expandNode(state, m.history)
	m.root.beliefs.AddSample(state)
	for i := 1; i < params.NumStartStates; i++ {
		m.root.beliefs.AddSample(sim.CreateStartState())
	}
	return m
}

func (m *FlatMCTS) TreeSize() int  { return m.numNodes }
func (m *FlatMCTS) TreeDepth() int { return m.treeDepth }

// Root exposes the root value statistic for diagnostics and tests.
func (m *FlatMCTS) Root() *Statistic { return &m.root.value }

func (m *FlatMCTS) SelectAction() int {
	m.Search()
	if m.params.ThompsonSampling {
		return m.thompsonSelect(m.root, false, 0)
	}
	return m.greedyUCB(m.root, false)
}

// Search runs simulations until the budget or the per-action timeout is
// exhausted. The timeout is checked between whole simulations.
func (m *FlatMCTS) Search() {
	if m.params.TimeOutPerAction > 0 {
		deadline := time.Duration(float64(time.Second) * m.params.TimeOutPerAction)
		start := time.Now()
		n := 0
		for time.Since(start) < deadline {
			m.searchImp()
			n++
		}
		if m.params.Verbose >= 1 {
			log.Info().Int("simulations", n).Msg("anytime search finished")
		}
		return
	}
	for i := 0; i < m.params.NumSimulations; i++ {
		m.searchImp()
	}
}

func (m *FlatMCTS) searchImp() {
	historyDepth := m.history.Size()

	state := m.root.beliefs.CreateSample(m.sim, m.rng)
	m.sim.Validate(state)

	m.simulateV(state, m.root, 0)

	m.sim.FreeState(state)
	m.history.Truncate(historyDepth)
}

func (m *FlatMCTS) simulateV(state pomdp.State, v *vnode, depth int) float64 {
	var action int
	if m.params.ThompsonSampling {
		action = m.thompsonSelect(v, true, depth)
	} else {
		action = m.greedyUCB(v, true)
	}

	if depth > m.treeDepth {
		m.treeDepth = depth
	}
	if depth >= m.params.MaxDepth { // search horizon reached
		return 0
	}

	if depth >= 1 {
		v.beliefs.AddSample(m.sim.Copy(state))
	}

	total := m.simulateQ(state, v.child(action), action, depth)

	if m.params.ThompsonSampling {
		v.cumulativeReward(state).Add(total)
	} else {
		v.value.Add(total)
	}
	return total
}

func (m *FlatMCTS) simulateQ(state pomdp.State, q *qnode, action, depth int) float64 {
	observation, reward, terminal := m.sim.Step(state, action)
	if m.params.ThompsonSampling {
		q.update(observation, reward)
	}

	if observation < 0 || observation >= m.sim.NumObservations() {
		panic(fmt.Sprintf("observation %d out of range", observation))
	}
	m.history.Add(action, observation)

	v := q.child(observation)
	if v == nil && m.params.MemorySize >= 0 && m.history.Size() >= m.params.MemorySize {
		// Bounded-memory histories collide; reuse the merged node.
		if merged, ok := m.beliefPool[m.history.BeliefHash()]; ok {
			if merged.beliefHash != m.history.BeliefHash() {
				panic("belief pool entry hash mismatch")
			}
			v = merged
			q.setChild(observation, v)
		}
	}

	delayed := 0.0
	if !terminal {
		if v != nil {
			delayed = m.simulateV(state, v, depth+1)
		} else {
			v = m.expandNode(state, m.history)
			q.setChild(observation, v)

			copied := m.sim.Copy(state)
			delayed = m.rollout(copied, depth+1)
			m.sim.FreeState(copied)

			if m.params.ThompsonSampling {
				v.cumulativeReward(state).Add(delayed)
			} else {
				v.value.Add(delayed)
			}
		}
	} else {
		if v == nil {
			v = m.expandNode(state, m.history)
			q.setChild(observation, v)
		}
		if m.params.ThompsonSampling {
			v.cumulativeReward(state).Add(0)
		} else {
			v.value.Add(0)
		}
	}

	total := reward + m.sim.Discount()*delayed
	if !m.params.ThompsonSampling {
		q.value.Add(total)
	}
	return total
}

// expandNode creates a vnode under the current history, seeds its priors
// from domain knowledge, and registers it for bounded-memory merging.
func (m *FlatMCTS) expandNode(state pomdp.State, history *pomdp.History) *vnode {
	v := newVNode(m.sim.NumActions(), history.BeliefHash(), m.params.ThompsonSampling)
	m.numNodes++

	legal := m.sim.GenerateLegal(state)
	if m.params.Knowledge.TreeLevel >= KnowledgeLegal && len(legal) > 0 {
		for _, a := range legal {
			v.child(a).applicable = true
		}
	} else {
		for a := 0; a < m.sim.NumActions(); a++ {
			v.child(a).applicable = true
		}
	}
	if m.params.Knowledge.TreeLevel >= KnowledgeSmart {
		for _, a := range m.sim.GeneratePreferred(state, history) {
			v.child(a).value.Set(m.params.Knowledge.SmartTreeValue, m.params.Knowledge.SmartTreeCount)
		}
	}

	if m.params.MemorySize >= 0 && history.Size() >= m.params.MemorySize {
		m.beliefPool[v.beliefHash] = v
	}
	return v
}

func (m *FlatMCTS) rollout(state pomdp.State, depth int) float64 {
	total := 0.0
	discount := 1.0
	terminal := false
	for steps := 0; steps+depth < m.params.MaxDepth && !terminal; steps++ {
		action := selectRandomAction(m.sim, state, m.history, m.params.Knowledge, m.rng)
		var reward float64
		var observation int
		observation, reward, terminal = m.sim.Step(state, action)
		m.history.Add(action, observation)

		total += reward * discount
		discount *= m.sim.Discount()
	}
	return total
}

// greedyUCB scans actions in numerical order, returning the first
// applicable zero-count action immediately; otherwise the argmax of
// Q (+ exploration bonus when ucb is set), ties broken uniformly.
func (m *FlatMCTS) greedyUCB(v *vnode, ucb bool) int {
	var best []int
	bestQ := negInfinity
	N := v.value.Count()

	for action := 0; action < m.sim.NumActions(); action++ {
		q := v.child(action)
		if !q.applicable {
			continue
		}

		n := q.value.Count()
		if n == 0 {
			return action
		}

		value := q.value.Mean()
		if ucb {
			value += m.ucb.FastUCB(N, n)
		}
		if value >= bestQ {
			if value > bestQ {
				best = best[:0]
			}
			bestQ = value
			best = append(best, action)
		}
	}

	if len(best) == 0 {
		panic("greedy selection found no applicable action")
	}
	return best[m.rng.Intn(len(best))]
}

// thompsonSelect returns an unexplored applicable action if any exists,
// else the argmax of sampled Q values.
func (m *FlatMCTS) thompsonSelect(v *vnode, sampling bool, depth int) int {
	var unexplored []int
	for action := 0; action < m.sim.NumActions(); action++ {
		q := v.child(action)
		if q.applicable && q.updateCount <= 0 {
			unexplored = append(unexplored, action)
		}
	}
	if len(unexplored) > 0 {
		return unexplored[m.rng.Intn(len(unexplored))]
	}

	best := -1
	bestQ := negInfinity
	for action := 0; action < m.sim.NumActions(); action++ {
		q := v.child(action)
		if !q.applicable {
			continue
		}
		if value := m.qValue(q, sampling, depth); value > bestQ {
			bestQ = value
			best = action
		}
	}
	if best == -1 {
		panic("thompson selection found no applicable action")
	}
	return best
}

// qValue marginalizes the observation posterior over child H-values and
// adds the sampled immediate reward.
func (m *FlatMCTS) qValue(q *qnode, sampling bool, depth int) float64 {
	value := 0.0
	for _, wo := range q.observations.Sample(sampling, m.rng) {
		value += wo.weight * m.hValue(q.child(wo.obs), sampling, depth)
	}
	value *= m.sim.Discount()
	value += q.reward.Sample(sampling, m.rng)
	return value
}

func (m *FlatMCTS) hValue(v *vnode, sampling bool, depth int) float64 {
	if v != nil {
		return v.thompson(sampling, m.rng)
	}
	if depth+1 >= m.params.MaxDepth { // search horizon reached
		return 0
	}
	return newNormalGamma().Sample(sampling, m.rng)
}

// Update advances past a real (action, observation) step: replenish the
// matched child's belief, then re-root. Returns false on particle
// depletion.
func (m *FlatMCTS) Update(action, observation int, state pomdp.State) bool {
	m.history.Add(action, observation)

	if m.sim.Flags().FullyObservable {
		// Planning an MDP as a POMDP: the real state is known, so drop
		// the tree and reseed from it.
		free(m.root, m.sim, nil)
		m.beliefPool = make(map[uint64]*vnode)
		m.numNodes = 0
		m.root = m.expandNode(state, m.history)
		m.root.beliefs.AddSample(m.sim.Copy(state))
		return true
	}

	var beliefs pomdp.BeliefState
	matched := m.root.child(action).child(observation)
	if matched != nil {
		if m.params.Verbose >= 1 {
			log.Info().Int("samples", matched.beliefs.NumSamples()).Msg("matched child node")
		}
		beliefs.Copy(&matched.beliefs, m.sim)
	} else if m.params.Verbose >= 1 {
		log.Info().Msg("no matching node found")
	}

	if m.params.UseParticleFilter {
		m.particleFilter(&beliefs)
	}
	if m.params.UseTransforms {
		m.addTransforms(&beliefs)
	}

	// If we still have no particles, fail
	if beliefs.Empty() && (matched == nil || matched.beliefs.Empty()) {
		return false
	}

	var sample pomdp.State
	if matched != nil && !matched.beliefs.Empty() {
		sample = matched.beliefs.GetSample(m.rng)
	} else {
		sample = beliefs.GetSample(m.rng)
	}

	m.beliefPool = make(map[uint64]*vnode)
	if matched != nil && m.params.ReuseTree {
		released := free(m.root, m.sim, matched)
		m.numNodes -= released
		m.root = matched
		m.root.beliefs.Free(m.sim)
	} else {
		free(m.root, m.sim, nil)
		m.numNodes = 0
		m.root = m.expandNode(sample, m.history)
	}
	m.root.beliefs.Move(&beliefs)

	return true
}

// particleFilter replenishes the belief by rejection sampling: simulate
// root particles under the real action and keep those that reproduce the
// real observation.
func (m *FlatMCTS) particleFilter(beliefs *pomdp.BeliefState) {
	attempts, added := 0, 0
	maxAttempts := (m.params.NumStartStates - beliefs.NumSamples()) * 10

	realObs := m.history.Back().Observation
	realAction := m.history.Back().Action

	for beliefs.NumSamples() < m.params.NumStartStates && attempts < maxAttempts {
		state := m.root.beliefs.CreateSample(m.sim, m.rng)
		stepObs, stepReward, _ := m.sim.Step(state, realAction)
		if m.params.ThompsonSampling {
			m.root.child(realAction).update(stepObs, stepReward)
		}

		if stepObs == realObs {
			beliefs.AddSample(state)
			added++
		} else {
			m.sim.FreeState(state)
		}
		attempts++
	}

	if m.params.Verbose >= 1 {
		log.Info().Int("added", added).Int("attempts", attempts).Msg("particle filter")
	}
}

// addTransforms pads the belief with local transformations consistent with
// the history.
func (m *FlatMCTS) addTransforms(beliefs *pomdp.BeliefState) {
	attempts, added := 0, 0
	for added < m.params.NumTransforms && attempts < m.params.MaxAttempts {
		if transform := m.createTransform(); transform != nil {
			beliefs.AddSample(transform)
			added++
		}
		attempts++
	}

	if m.params.Verbose >= 1 {
		log.Info().Int("added", added).Int("attempts", attempts).Msg("belief transforms")
	}
}

func (m *FlatMCTS) createTransform() pomdp.State {
	state := m.root.beliefs.CreateSample(m.sim, m.rng)
	stepObs, stepReward, _ := m.sim.Step(state, m.history.Back().Action)
	if m.params.ThompsonSampling {
		m.root.child(m.history.Back().Action).update(stepObs, stepReward)
	}

	if m.sim.LocalMove(state, m.history, stepObs) {
		return state
	}
	m.sim.FreeState(state)
	return nil
}
