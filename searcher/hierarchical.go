package searcher

import (
	"fmt"
	"math"
	"time"

	"hplanning/pomdp"

	"github.com/rs/zerolog/log"
)

// input is the belief context a subtask is simulated from.
type input struct {
	beliefHash uint64
	lastObs    int
}

// result is the outcome of running a subtask to completion: the reward sum
// in the subtask's own discounting frame, the primitive steps elapsed,
// whether the episode terminated, and the belief context at exit.
type result struct {
	reward     float64
	steps      int
	terminal   bool
	beliefHash uint64
	lastObs    int
}

// bound is a UCB1 confidence interval around a subtask Q-estimate.
type bound struct {
	lower, upper float64
}

func (b bound) width() float64 {
	return b.upper - b.lower
}

// subtaskData is the per-(macro, belief) value table entry.
type subtaskData struct {
	value   Statistic
	qvalues map[macroAction]*Statistic
	cache   []result
}

func newSubtaskData() *subtaskData {
	return &subtaskData{qvalues: make(map[macroAction]*Statistic)}
}

func (d *subtaskData) qvalue(a macroAction) *Statistic {
	s, ok := d.qvalues[a]
	if !ok {
		s = &Statistic{}
		d.qvalues[a] = s
	}
	return s
}

// bound is the UCB1 interval for child a.
func (d *subtaskData) bound(a macroAction, t *ucbTable) bound {
	N := d.value.Count()
	q := d.qvalue(a)
	b := t.FastUCB(N, q.Count())
	return bound{lower: q.Mean() - b, upper: q.Mean() + b}
}

// HierarchicalMCTS plans over a task hierarchy of macro-actions, caching
// converged subtask exits and learning macro applicability from
// exploration.
type HierarchicalMCTS struct {
	sim     pomdp.Simulator
	params  Params
	rng     *pomdp.RNG
	ucb     *ucbTable
	history *pomdp.History
	graph   *taskGraph

	tree        map[macroAction]map[uint64]*subtaskData
	rootBeliefs pomdp.BeliefState

	// exitPool holds terminal (exit) states per cached result context.
	exitPool map[uint64]*pomdp.BeliefState

	convergedBound float64
	treeSize       int
	treeDepth      int

	// Cache usage statistics.
	cacheHitRate Statistic
	cacheSteps   Statistic
}

var _ Planner = (*HierarchicalMCTS)(nil)

func NewHierarchicalMCTS(sim pomdp.Simulator, params Params, firstObservation int) (*HierarchicalMCTS, error) {
	if sim.Flags().ActionAbstraction && sim.NumObservations() == 0 {
		return nil, fmt.Errorf("action abstraction requires observations, got %d", sim.NumObservations())
	}

	m := &HierarchicalMCTS{
		sim:      sim,
		params:   params,
		rng:      pomdp.NewRNG(params.Seed),
		ucb:      newUCBTable(params.ExplorationConstant),
		history:  pomdp.NewHistory(params.MemorySize),
		graph:    newTaskGraph(sim.NumActions(), sim.NumObservations(), sim.Flags().ActionAbstraction, params.RootGoal),
		tree:     make(map[macroAction]map[uint64]*subtaskData),
		exitPool: make(map[uint64]*pomdp.BeliefState),
	}
	m.history.SetInitial(firstObservation)

	for i := 0; i < params.NumStartStates; i++ {
		m.rootBeliefs.AddSample(sim.CreateStartState())
	}

	if sim.Flags().ActionAbstraction {
		m.warmup()
	}

	m.convergedBound = math.Pow(1.1, float64(params.Converged)) * 2 * m.ucb.FastUCB(params.NumSimulations, params.NumSimulations)
	if params.Verbose >= 2 {
		log.Info().Float64("bound", m.convergedBound).Float64("cacheRate", params.CacheRate).Msg("convergence threshold")
	}
	return m, nil
}

// warmup populates the applicability relation from random trajectories.
// It runs on sampled start states and never touches the tree.
func (m *HierarchicalMCTS) warmup() {
	for i := 0; i < m.params.WarmupTrajectories; i++ {
		history := pomdp.NewHistory(m.params.MemorySize)
		state := m.rootBeliefs.CreateSample(m.sim, m.rng)
		m.sim.Validate(state)

		terminal := false
		for step := 0; !terminal && step < m.params.WarmupSteps; step++ {
			action := m.rng.Intn(m.sim.NumActions())
			var observation int
			observation, _, terminal = m.sim.Step(state, action)
			m.graph.updateConnection(history.LastObservation(), observation)
			history.Add(action, observation)
		}

		m.sim.FreeState(state)
	}
}

func (m *HierarchicalMCTS) TreeSize() int  { return m.treeSize }
func (m *HierarchicalMCTS) TreeDepth() int { return m.treeDepth }

// Graph access for tests and diagnostics.
func (m *HierarchicalMCTS) applicableSymmetric(o1, o2 int) (bool, bool) {
	return m.graph.isApplicable(o1, m.graph.macroAction(o2)),
		m.graph.isApplicable(o2, m.graph.macroAction(o1))
}

func (m *HierarchicalMCTS) SelectAction() int {
	m.search()
	return m.selectPrimitiveAction(rootTask)
}

func (m *HierarchicalMCTS) search() {
	if m.params.TimeOutPerAction > 0 {
		deadline := time.Duration(float64(time.Second) * m.params.TimeOutPerAction)
		start := time.Now()
		for time.Since(start) < deadline {
			m.searchImp()
		}
		return
	}
	for i := 0; i < m.params.NumSimulations; i++ {
		m.searchImp()
	}
}

func (m *HierarchicalMCTS) searchImp() {
	historyDepth := m.history.Size()

	state := m.rootBeliefs.CreateSample(m.sim, m.rng)
	m.sim.Validate(state)

	if lastObs := m.history.LastObservation(); m.graph.terminate(rootTask, lastObs) {
		// The episode already sits on this abstract target; it is no
		// longer a valid goal for any subtask.
		if m.params.Verbose >= 2 {
			log.Info().Int("observation", lastObs).Msg("removing observation from task graph")
		}
		m.graph.eraseGoal(lastObs)
	}

	in := input{beliefHash: m.history.BeliefHash(), lastObs: m.history.LastObservation()}
	_, state = m.searchTree(rootTask, in, state, 0)

	m.sim.FreeState(state)
	m.history.Truncate(historyDepth)
}

// searchTree simulates macro a from the given context. The state argument
// is moved in and the (possibly substituted) exit state is moved out.
func (m *HierarchicalMCTS) searchTree(a macroAction, in input, state pomdp.State, depth int) (result, pomdp.State) {
	if depth > m.treeDepth {
		m.treeDepth = depth
	}

	if m.graph.primitive(a) {
		return m.rollout(a, in, state, depth) // simulate the primitive
	}

	if depth >= m.params.MaxDepth || m.graph.terminate(a, in.lastObs) {
		return result{beliefHash: in.beliefHash, lastObs: in.lastObs}, state
	}

	data := m.query(a, in.beliefHash)
	if data == nil {
		m.insert(a, in.beliefHash)
		return m.rollout(a, in, state, depth) // leaf expansion by rollout
	}

	converged := false
	if m.sim.Flags().ActionAbstraction && m.params.Converged != 0 {
		greedy := m.greedyMacro(a, in.lastObs, data, false)
		if data.bound(greedy, m.ucb).width() <= m.convergedBound {
			converged = true

			if len(data.cache) > 0 && m.rng.Bernoulli(m.params.CacheRate) {
				cached := data.cache[m.rng.Intn(len(data.cache))]
				m.sim.FreeState(state) // drop current state
				pool := m.exitPool[cached.beliefHash]
				if pool == nil || pool.Empty() {
					panic("cached exit has no state in the exit pool")
				}
				state = m.sim.Copy(pool.GetSample(m.rng)) // resample an exit state
				m.cacheHitRate.Add(1)
				m.cacheSteps.Add(float64(cached.steps))
				return cached, state
			}
		}
	}
	m.cacheHitRate.Add(0)

	child := m.greedyMacro(a, in.lastObs, data, true)
	var subtask result
	subtask, state = m.searchTree(child, in, state, depth) // updates history frame and state

	steps := subtask.steps
	completion := result{beliefHash: subtask.beliefHash, lastObs: subtask.lastObs}
	if !subtask.terminal {
		completion, state = m.searchTree(a, input{subtask.beliefHash, subtask.lastObs}, state, depth+steps)
	}

	total := subtask.reward + math.Pow(m.sim.Discount(), float64(steps))*completion.reward
	data.value.Add(total)
	data.qvalue(child).Add(total)

	steps += completion.steps
	ret := result{
		reward:     total,
		steps:      steps,
		terminal:   subtask.terminal || completion.terminal,
		beliefHash: completion.beliefHash,
		lastObs:    completion.lastObs,
	}

	if m.sim.Flags().ActionAbstraction && m.params.Converged != 0 && converged {
		if ret.terminal || m.graph.terminate(a, ret.lastObs) { // truly an exit
			data.cache = append(data.cache, ret)
			pool := m.exitPool[completion.beliefHash]
			if pool == nil {
				pool = &pomdp.BeliefState{}
				m.exitPool[completion.beliefHash] = pool
			}
			pool.AddSample(m.sim.Copy(state))
		}
	}

	return ret, state
}

// rollout is the pure Monte Carlo counterpart of searchTree: same
// composition, no statistics.
func (m *HierarchicalMCTS) rollout(a macroAction, in input, state pomdp.State, depth int) (result, pomdp.State) {
	if m.graph.primitive(a) {
		observation, reward, terminal := m.sim.Step(state, a)
		m.graph.updateConnection(in.lastObs, observation)

		var beliefHash uint64
		if m.sim.Flags().StateAbstraction { // whole history
			beliefHash = pomdp.CombineHash(in.beliefHash, a, observation)
		} else { // memory size 1
			beliefHash = pomdp.CombineHash(0, observation, depth)
		}
		return result{reward: reward, steps: 1, terminal: terminal, beliefHash: beliefHash, lastObs: observation}, state
	}

	if depth >= m.params.MaxDepth || m.graph.terminate(a, in.lastObs) {
		return result{beliefHash: in.beliefHash, lastObs: in.lastObs}, state
	}

	child := m.randomChild(a, in.lastObs)
	var subtask result
	subtask, state = m.rollout(child, in, state, depth)

	steps := subtask.steps
	completion := result{beliefHash: subtask.beliefHash, lastObs: subtask.lastObs}
	if !subtask.terminal {
		completion, state = m.rollout(a, input{subtask.beliefHash, subtask.lastObs}, state, depth+steps)
	}

	total := subtask.reward + math.Pow(m.sim.Discount(), float64(steps))*completion.reward
	steps += completion.steps
	return result{
		reward:     total,
		steps:      steps,
		terminal:   subtask.terminal || completion.terminal,
		beliefHash: completion.beliefHash,
		lastObs:    completion.lastObs,
	}, state
}

// greedyMacro scans a's children in order, returning the first applicable
// non-terminating child with zero count; otherwise the argmax of
// Q (+ exploration bonus when ucb is set), ties broken uniformly.
func (m *HierarchicalMCTS) greedyMacro(a macroAction, lastObs int, data *subtaskData, ucb bool) macroAction {
	var best []macroAction
	bestQ := negInfinity
	N := data.value.Count()

	for _, child := range m.graph.subtasks[a] {
		if m.graph.terminate(child, lastObs) || !m.graph.isApplicable(lastObs, child) {
			continue
		}

		stat := data.qvalue(child)
		if stat.Count() == 0 {
			return child
		}

		q := stat.Mean()
		if ucb {
			q += m.ucb.FastUCB(N, stat.Count())
		}
		if q >= bestQ {
			if q > bestQ {
				best = best[:0]
			}
			bestQ = q
			best = append(best, child)
		}
	}

	if len(best) == 0 {
		panic(fmt.Sprintf("no applicable child for macro %d at observation %d", a, lastObs))
	}
	return best[m.rng.Intn(len(best))]
}

// randomChild draws uniformly among a's applicable, non-terminating
// children.
func (m *HierarchicalMCTS) randomChild(a macroAction, lastObs int) macroAction {
	var candidates []macroAction
	for _, child := range m.graph.subtasks[a] {
		if m.graph.terminate(child, lastObs) || !m.graph.isApplicable(lastObs, child) {
			continue
		}
		candidates = append(candidates, child)
	}
	if len(candidates) == 0 {
		panic(fmt.Sprintf("no applicable child for macro %d at observation %d", a, lastObs))
	}
	return candidates[m.rng.Intn(len(candidates))]
}

// selectPrimitiveAction descends the hierarchy greedily where subtask data
// exists and randomly where it does not, until a primitive is reached.
func (m *HierarchicalMCTS) selectPrimitiveAction(a macroAction) int {
	if m.graph.primitive(a) {
		return a
	}

	var child macroAction
	if data := m.query(a, m.history.BeliefHash()); data != nil {
		if m.params.Verbose >= 1 {
			log.Info().Int("task", a).Str("value", data.value.String()).Msg("greedy descent")
		}
		child = m.greedyMacro(a, m.history.LastObservation(), data, false)
	} else {
		if m.params.Verbose >= 1 {
			log.Info().Int("task", a).Msg("random descent")
		}
		child = m.randomChild(a, m.history.LastObservation())
	}
	return m.selectPrimitiveAction(child)
}

func (m *HierarchicalMCTS) query(a macroAction, beliefHash uint64) *subtaskData {
	if byHash, ok := m.tree[a]; ok {
		return byHash[beliefHash]
	}
	return nil
}

func (m *HierarchicalMCTS) insert(a macroAction, beliefHash uint64) *subtaskData {
	byHash, ok := m.tree[a]
	if !ok {
		byHash = make(map[uint64]*subtaskData)
		m.tree[a] = byHash
	}
	data := newSubtaskData()
	byHash[beliefHash] = data
	m.treeSize++
	return data
}

// clear destroys the subtask tables, the root belief, and the exit-state
// pool.
func (m *HierarchicalMCTS) clear() {
	m.tree = make(map[macroAction]map[uint64]*subtaskData)
	m.treeSize = 0
	m.rootBeliefs.Free(m.sim)
	for _, pool := range m.exitPool {
		pool.Free(m.sim)
	}
	m.exitPool = make(map[uint64]*pomdp.BeliefState)
}

// Update records the real step in the applicability relation, discards the
// tree, and reseeds the root belief from the real state. The hierarchical
// planner never runs out of particles.
func (m *HierarchicalMCTS) Update(action, observation int, state pomdp.State) bool {
	m.graph.updateConnection(m.history.LastObservation(), observation)
	m.history.Add(action, observation)

	m.clear()
	m.rootBeliefs.AddSample(m.sim.Copy(state))

	return true
}
