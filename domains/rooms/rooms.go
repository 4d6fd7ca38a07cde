// Package rooms implements a gridworld of connected rooms. The world is a
// fully observable MDP planned as a POMDP: the observation is the room
// index, which doubles as the abstract region for hierarchical planning.
package rooms

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
	// RoomsX x RoomsY rooms of RoomSize x RoomSize cells each, with a
	// one-cell door at the midpoint of every shared wall.
	RoomsX   int
	RoomsY   int
	RoomSize int
	// SlipProb replaces the chosen move by a uniform random one.
	SlipProb float64
	Discount float64
	// GoalReward is granted on entering the goal cell; every step costs 1.
	GoalReward float64
	// RandomStart draws the start cell uniformly; otherwise the agent
	// starts in the corner opposite the goal.
	RandomStart       bool
	StateAbstraction  bool
	ActionAbstraction bool
	Seed              uint64
}

func DefaultConfig() Config {
	return Config{
		RoomsX:            2,
		RoomsY:            2,
		RoomSize:          5,
		SlipProb:          0,
		Discount:          0.95,
		GoalReward:        10,
		RandomStart:       false,
		ActionAbstraction: true,
		Seed:              1,
	}
}

// State is the agent's cell.
type State struct {
	X, Y int
}

func (s *State) Hash() uint64 {
	hasher := fnv.New64a()
	binary.Write(hasher, binary.LittleEndian, int64(s.X))
	binary.Write(hasher, binary.LittleEndian, int64(s.Y))
	return hasher.Sum64()
}

// Rooms is the simulator. The goal cell sits in room 0, so abstract
// observation 0 is the goal region.
type Rooms struct {
	cfg    Config
	width  int
	height int
	goalX  int
	goalY  int
	rng    *pomdp.RNG
}

var _ pomdp.Simulator = (*Rooms)(nil)

func New(cfg Config) *Rooms {
	if cfg.RoomsX <= 0 || cfg.RoomsY <= 0 || cfg.RoomSize <= 0 {
		panic(fmt.Sprintf("invalid rooms layout %dx%d rooms of size %d", cfg.RoomsX, cfg.RoomsY, cfg.RoomSize))
	}
	return &Rooms{
		cfg:    cfg,
		width:  cfg.RoomsX * cfg.RoomSize,
		height: cfg.RoomsY * cfg.RoomSize,
		goalX:  0,
		goalY:  0,
		rng:    pomdp.NewRNG(cfg.Seed),
	}
}

func (r *Rooms) NumActions() int      { return NumActions }
func (r *Rooms) NumObservations() int { return r.cfg.RoomsX * r.cfg.RoomsY }
func (r *Rooms) Discount() float64    { return r.cfg.Discount }
func (r *Rooms) RewardRange() float64 { return r.cfg.GoalReward + 1 }

func (r *Rooms) Flags() pomdp.Flags {
	return pomdp.Flags{
		ActionAbstraction:    r.cfg.ActionAbstraction,
		StateAbstraction:     r.cfg.StateAbstraction,
		FullyObservable:      true,
		HierarchicalPlanning: true,
	}
}

func (r *Rooms) CreateStartState() pomdp.State {
	if r.cfg.RandomStart {
		for {
			s := &State{X: r.rng.Intn(r.width), Y: r.rng.Intn(r.height)}
			if s.X != r.goalX || s.Y != r.goalY {
				return s
			}
		}
	}
	return &State{X: r.width - 1, Y: r.height - 1}
}

func (r *Rooms) FreeState(pomdp.State) {}

func (r *Rooms) Copy(state pomdp.State) pomdp.State {
	s := state.(*State)
	copied := *s
	return &copied
}

func (r *Rooms) Step(state pomdp.State, action int) (int, float64, bool) {
	s := state.(*State)

	if r.cfg.SlipProb > 0 && r.rng.Bernoulli(r.cfg.SlipProb) {
		action = r.rng.Intn(NumActions)
	}

	nx, ny := s.X, s.Y
	switch action {
	case ActionUp:
		ny--
	case ActionDown:
		ny++
	case ActionLeft:
		nx--
	case ActionRight:
		nx++
	default:
		panic(fmt.Sprintf("unknown action %d", action))
	}

	if r.passable(s.X, s.Y, nx, ny) {
		s.X, s.Y = nx, ny
	}

	observation := r.room(s.X, s.Y)
	if s.X == r.goalX && s.Y == r.goalY {
		return observation, r.cfg.GoalReward, true
	}
	return observation, -1, false
}

// passable reports whether a unit move from (x, y) to (nx, ny) stays in
// bounds and, when crossing a room boundary, passes through the door at the
// shared wall's midpoint.
func (r *Rooms) passable(x, y, nx, ny int) bool {
	if nx < 0 || nx >= r.width || ny < 0 || ny >= r.height {
		return false
	}
	size := r.cfg.RoomSize
	mid := size / 2
	if nx/size != x/size { // horizontal crossing
		return y%size == mid
	}
	if ny/size != y/size { // vertical crossing
		return x%size == mid
	}
	return true
}

// room returns the abstract observation: the room index.
func (r *Rooms) room(x, y int) int {
	return (y/r.cfg.RoomSize)*r.cfg.RoomsX + x/r.cfg.RoomSize
}

func (r *Rooms) Abstraction(state pomdp.State) int {
	s := state.(*State)
	return r.room(s.X, s.Y)
}

func (r *Rooms) Validate(state pomdp.State) {
	s := state.(*State)
	if s.X < 0 || s.X >= r.width || s.Y < 0 || s.Y >= r.height {
		panic(fmt.Sprintf("state (%d, %d) outside %dx%d grid", s.X, s.Y, r.width, r.height))
	}
}

// LocalMove perturbs the agent within its current room; the perturbation is
// history-consistent only if the room matches the last real observation.
func (r *Rooms) LocalMove(state pomdp.State, history *pomdp.History, stepObs int) bool {
	s := state.(*State)
	size := r.cfg.RoomSize
	roomX := (s.X / size) * size
	roomY := (s.Y / size) * size
	s.X = roomX + r.rng.Intn(size)
	s.Y = roomY + r.rng.Intn(size)
	return history.LastObservation() < 0 || r.room(s.X, s.Y) == history.LastObservation()
}

func (r *Rooms) GenerateLegal(pomdp.State) []int {
	return []int{ActionUp, ActionDown, ActionLeft, ActionRight}
}

func (r *Rooms) GeneratePreferred(pomdp.State, *pomdp.History) []int {
	return nil
}
