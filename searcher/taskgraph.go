package searcher

// macroAction indexes the task hierarchy. Primitive actions occupy
// [0, NumActions); macros occupy [NumActions, NumActions+NumObservations),
// each encoding a target abstract observation. rootTask tops the hierarchy.
type macroAction = int

const rootTask macroAction = -1

// taskGraph holds the subtask relation, per-subtask goal sets, and the
// learned applicability between abstract observations and macros.
type taskGraph struct {
	numActions        int
	actionAbstraction bool
	subtasks          map[macroAction][]macroAction
	goals             map[macroAction]map[int]bool
	applicable        map[int]map[macroAction]bool
}

func newTaskGraph(numActions, numObservations int, actionAbstraction bool, rootGoal int) *taskGraph {
	g := &taskGraph{
		numActions:        numActions,
		actionAbstraction: actionAbstraction,
		subtasks:          make(map[macroAction][]macroAction),
		goals:             make(map[macroAction]map[int]bool),
		applicable:        make(map[int]map[macroAction]bool),
	}

	g.subtasks[rootTask] = nil
	for a := 0; a < numActions; a++ {
		g.subtasks[a] = nil // primitive actions
	}

	if actionAbstraction {
		g.goals[rootTask] = map[int]bool{rootGoal: true}

		for o := 0; o < numObservations; o++ {
			m := g.macroAction(o)
			children := make([]macroAction, numActions)
			for a := 0; a < numActions; a++ {
				children[a] = a
			}
			g.subtasks[m] = children
			g.goals[m] = map[int]bool{o: true}
		}
		for o := 0; o < numObservations; o++ {
			g.subtasks[rootTask] = append(g.subtasks[rootTask], g.macroAction(o))
		}
	} else {
		for a := 0; a < numActions; a++ {
			g.subtasks[rootTask] = append(g.subtasks[rootTask], a)
		}
	}
	return g
}

// macroAction returns the macro targeting observation o.
func (g *taskGraph) macroAction(o int) macroAction {
	return g.numActions + o
}

// primitive reports whether a has no subtasks.
func (g *taskGraph) primitive(a macroAction) bool {
	return len(g.subtasks[a]) == 0
}

// terminate reports whether macro a reaches a goal at lastObs.
func (g *taskGraph) terminate(a macroAction, lastObs int) bool {
	return !g.primitive(a) && lastObs >= 0 && g.goals[a][lastObs]
}

// updateConnection records a transition between abstract observations,
// symmetrically marking the corresponding macros applicable.
func (g *taskGraph) updateConnection(lastObs, observation int) {
	if !g.actionAbstraction || lastObs < 0 {
		return
	}
	g.mark(lastObs, g.macroAction(observation))
	g.mark(observation, g.macroAction(lastObs))
}

func (g *taskGraph) mark(obs int, a macroAction) {
	row, ok := g.applicable[obs]
	if !ok {
		row = make(map[macroAction]bool)
		g.applicable[obs] = row
	}
	row[a] = true
}

// isApplicable reports whether a may be chosen at lastObs. Primitives and
// the root task always are.
func (g *taskGraph) isApplicable(lastObs int, a macroAction) bool {
	if lastObs < 0 || g.primitive(a) || a == rootTask {
		return true
	}
	return g.applicable[lastObs][a]
}

// eraseGoal removes obs from every subtask's goal set; used once the
// episode has already reached that abstract target.
func (g *taskGraph) eraseGoal(obs int) {
	for _, goals := range g.goals {
		delete(goals, obs)
	}
}
