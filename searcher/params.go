package searcher

import "math"

var negInfinity = math.Inf(-1)

// Knowledge levels for tree priors and rollout policies.
const (
	KnowledgePure = iota
	KnowledgeLegal
	KnowledgeSmart
)

// Knowledge controls how much domain information the planner uses when
// initialising node priors and picking rollout actions.
type Knowledge struct {
	TreeLevel      int
	RolloutLevel   int
	SmartTreeCount int
	SmartTreeValue float64
}

// Params are the search hyperparameters shared by both planners.
type Params struct {
	Verbose             int
	MaxDepth            int
	NumSimulations      int
	NumStartStates      int
	UseTransforms       bool
	UseParticleFilter   bool
	NumTransforms       int
	MaxAttempts         int
	ExplorationConstant float64
	ReuseTree           bool
	ThompsonSampling    bool
	// TimeOutPerAction bounds one search in seconds; -1 disables it.
	TimeOutPerAction float64
	// MemorySize bounds the history suffix used for belief fingerprints;
	// -1 keeps the whole history.
	MemorySize int
	// Converged scales the subtask convergence threshold; 0 disables
	// exit caching.
	Converged int
	// CacheRate is the probability of substituting a cached exit once a
	// subtask has converged.
	CacheRate float64
	// RootGoal is the abstract observation treated as the root task's goal.
	RootGoal int
	// Hplanning selects the hierarchical planner in the driver.
	Hplanning bool
	// ActionAbstraction enables macro-actions; the driver copies it onto
	// the domain's flags.
	ActionAbstraction bool
	// Warmup trajectories populate the applicability relation before the
	// first search.
	WarmupTrajectories int
	WarmupSteps        int
	Seed               uint64
	Knowledge          Knowledge
}

func DefaultParams() Params {
	return Params{
		Verbose:             0,
		MaxDepth:            100,
		NumSimulations:      1000,
		NumStartStates:      1000,
		UseTransforms:       true,
		UseParticleFilter:   false,
		NumTransforms:       0,
		MaxAttempts:         0,
		ExplorationConstant: 1.0,
		ReuseTree:           false,
		ThompsonSampling:    false,
		TimeOutPerAction:    -1,
		MemorySize:          -1,
		Converged:           0,
		CacheRate:           0.5,
		RootGoal:            0,
		WarmupTrajectories:  1000,
		WarmupSteps:         1000,
		Seed:                1,
		Knowledge: Knowledge{
			TreeLevel:      KnowledgeLegal,
			RolloutLevel:   KnowledgeLegal,
			SmartTreeCount: 10,
			SmartTreeValue: 1.0,
		},
	}
}
