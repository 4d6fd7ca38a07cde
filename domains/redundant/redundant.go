// Package redundant implements the redundant-object world: an agent moves
// on an open grid towards a goal corner while an object random-walks
// without ever affecting reward or observation. With state abstraction on,
// the object drops out of the state fingerprint, collapsing otherwise
// distinct beliefs.
package redundant

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"hplanning/pomdp"
)

const (
	ActionUp = iota
	ActionDown
	ActionLeft
	ActionRight
	NumActions
)

type Config struct {
	Size              int
	Discount          float64
	GoalReward        float64
	StateAbstraction  bool
	ActionAbstraction bool
	Seed              uint64
}

func DefaultConfig() Config {
	return Config{
		Size:              8,
		Discount:          0.95,
		GoalReward:        10,
		StateAbstraction:  true,
		ActionAbstraction: true,
		Seed:              1,
	}
}

// State carries the agent and the redundant object positions.
type State struct {
	AgentX, AgentY   int
	ObjectX, ObjectY int

	abstract bool
}

func (s *State) Hash() uint64 {
	hasher := fnv.New64a()
	binary.Write(hasher, binary.LittleEndian, int64(s.AgentX))
	binary.Write(hasher, binary.LittleEndian, int64(s.AgentY))
	if !s.abstract {
		binary.Write(hasher, binary.LittleEndian, int64(s.ObjectX))
		binary.Write(hasher, binary.LittleEndian, int64(s.ObjectY))
	}
	return hasher.Sum64()
}

// World is the simulator. Observations are the four quadrants of the grid.
type World struct {
	cfg Config
	rng *pomdp.RNG
}

var _ pomdp.Simulator = (*World)(nil)

func New(cfg Config) *World {
	if cfg.Size < 2 {
		panic(fmt.Sprintf("grid size %d too small", cfg.Size))
	}
	return &World{cfg: cfg, rng: pomdp.NewRNG(cfg.Seed)}
}

func (w *World) NumActions() int      { return NumActions }
func (w *World) NumObservations() int { return 4 }
func (w *World) Discount() float64    { return w.cfg.Discount }
func (w *World) RewardRange() float64 { return w.cfg.GoalReward + 1 }

func (w *World) Flags() pomdp.Flags {
	return pomdp.Flags{
		ActionAbstraction:    w.cfg.ActionAbstraction,
		StateAbstraction:     w.cfg.StateAbstraction,
		FullyObservable:      true,
		HierarchicalPlanning: true,
	}
}

func (w *World) CreateStartState() pomdp.State {
	return &State{
		AgentX:   w.cfg.Size - 1,
		AgentY:   w.cfg.Size - 1,
		ObjectX:  w.rng.Intn(w.cfg.Size),
		ObjectY:  w.rng.Intn(w.cfg.Size),
		abstract: w.cfg.StateAbstraction,
	}
}

func (w *World) FreeState(pomdp.State) {}

func (w *World) Copy(state pomdp.State) pomdp.State {
	s := state.(*State)
	copied := *s
	return &copied
}

func (w *World) Step(state pomdp.State, action int) (int, float64, bool) {
	s := state.(*State)

	switch action {
	case ActionUp:
		s.AgentY = max(0, s.AgentY-1)
	case ActionDown:
		s.AgentY = min(w.cfg.Size-1, s.AgentY+1)
	case ActionLeft:
		s.AgentX = max(0, s.AgentX-1)
	case ActionRight:
		s.AgentX = min(w.cfg.Size-1, s.AgentX+1)
	default:
		panic(fmt.Sprintf("unknown action %d", action))
	}

	// The object random-walks; it never touches reward or observation.
	switch w.rng.Intn(4) {
	case 0:
		s.ObjectY = max(0, s.ObjectY-1)
	case 1:
		s.ObjectY = min(w.cfg.Size-1, s.ObjectY+1)
	case 2:
		s.ObjectX = max(0, s.ObjectX-1)
	case 3:
		s.ObjectX = min(w.cfg.Size-1, s.ObjectX+1)
	}

	observation := w.quadrant(s)
	if s.AgentX == 0 && s.AgentY == 0 {
		return observation, w.cfg.GoalReward, true
	}
	return observation, -1, false
}

// quadrant returns the abstract observation: which quarter of the grid the
// agent occupies. The goal corner lies in quadrant 0.
func (w *World) quadrant(s *State) int {
	half := w.cfg.Size / 2
	q := 0
	if s.AgentX >= half {
		q |= 1
	}
	if s.AgentY >= half {
		q |= 2
	}
	return q
}

func (w *World) Abstraction(state pomdp.State) int {
	return w.quadrant(state.(*State))
}

func (w *World) Validate(state pomdp.State) {
	s := state.(*State)
	if s.AgentX < 0 || s.AgentX >= w.cfg.Size || s.AgentY < 0 || s.AgentY >= w.cfg.Size {
		panic(fmt.Sprintf("agent (%d, %d) outside %dx%d grid", s.AgentX, s.AgentY, w.cfg.Size, w.cfg.Size))
	}
	if s.ObjectX < 0 || s.ObjectX >= w.cfg.Size || s.ObjectY < 0 || s.ObjectY >= w.cfg.Size {
		panic(fmt.Sprintf("object (%d, %d) outside %dx%d grid", s.ObjectX, s.ObjectY, w.cfg.Size, w.cfg.Size))
	}
}

// LocalMove re-randomizes the object only; the agent, and so the
// observation history, is untouched.
func (w *World) LocalMove(state pomdp.State, history *pomdp.History, stepObs int) bool {
	s := state.(*State)
	s.ObjectX = w.rng.Intn(w.cfg.Size)
	s.ObjectY = w.rng.Intn(w.cfg.Size)
	return true
}

func (w *World) GenerateLegal(pomdp.State) []int {
	return []int{ActionUp, ActionDown, ActionLeft, ActionRight}
}

func (w *World) GeneratePreferred(pomdp.State, *pomdp.History) []int {
	return nil
}
