package experiments

import (
	"math"
	"time"

	"hplanning/experiments/metrics"
	"hplanning/pomdp"
	"hplanning/searcher"

	"github.com/rs/zerolog/log"
)

// Params configure the outer experiment loop.
type Params struct {
	NumRuns  int
	NumSteps int
	// TimeOut bounds one episode, and the summed run time of one MultiRun,
	// in seconds.
	TimeOut             float64
	MinDoubles          int
	MaxDoubles          int
	TransformDoubles    int
	TransformAttempts   int
	Accuracy            float64
	UndiscountedHorizon int
}

func DefaultParams() Params {
	return Params{
		NumRuns:             1000,
		NumSteps:            100000,
		TimeOut:             3600,
		MinDoubles:          0,
		MaxDoubles:          20,
		TransformDoubles:    -4,
		TransformAttempts:   1000,
		Accuracy:            0.001,
		UndiscountedHorizon: 1000,
	}
}

// Experiment runs a planner against the real simulator. The real world and
// the planner's model are distinct simulator instances so the planner can
// never cheat by mutating real state.
type Experiment struct {
	Real         pomdp.Simulator
	Sim          pomdp.Simulator
	ExpParams    Params
	SearchParams searcher.Params

	Results metrics.Results
}

func New(real, sim pomdp.Simulator, expParams Params, searchParams searcher.Params) *Experiment {
	return &Experiment{
		Real:         real,
		Sim:          sim,
		ExpParams:    expParams,
		SearchParams: searchParams,
	}
}

func (e *Experiment) newPlanner(firstObservation int) searcher.Planner {
	if e.SearchParams.Hplanning {
		planner, err := searcher.NewHierarchicalMCTS(e.Sim, e.SearchParams, firstObservation)
		if err != nil {
			panic(err)
		}
		return planner
	}
	return searcher.NewFlatMCTS(e.Sim, e.SearchParams, firstObservation)
}

// Run executes one episode.
func (e *Experiment) Run() {
	start := time.Now()

	state := e.Real.CreateStartState()
	planner := e.newPlanner(e.Real.Abstraction(state))

	undiscounted := 0.0
	discounted := 0.0
	discount := 1.0
	outOfParticles := false
	t := 0

	for ; t < e.ExpParams.NumSteps; t++ {
		actionStart := time.Now()
		action := planner.SelectAction()
		e.Results.TimePerAction.Add(time.Since(actionStart).Seconds())

		observation, reward, terminal := e.Real.Step(state, action)
		e.Results.Reward.Add(reward)
		undiscounted += reward
		discounted += reward * discount
		discount *= e.Real.Discount()

		e.Results.ExploredNodes.Add(float64(planner.TreeSize()))
		e.Results.ExploredDepth.Add(float64(planner.TreeDepth()))

		if e.SearchParams.Verbose >= 1 {
			log.Info().Int("step", t).Int("action", action).Int("observation", observation).Float64("reward", reward).Msg("real step")
		}

		if terminal {
			break
		}

		if !planner.Update(action, observation, state) {
			outOfParticles = true
			break
		}

		if time.Since(start).Seconds() > e.ExpParams.TimeOut {
			log.Warn().Int("steps", t).Msg("experiment timed out")
			break
		}
	}

	if outOfParticles {
		// Finish the episode with a random policy.
		log.Warn().Msg("out of particles, finishing episode with random actions")
		rng := pomdp.NewRNG(e.SearchParams.Seed + 12345)
		for t++; t < e.ExpParams.NumSteps; t++ {
			action := rng.Intn(e.Sim.NumActions())
			_, reward, terminal := e.Real.Step(state, action)

			e.Results.Reward.Add(reward)
			undiscounted += reward
			discounted += reward * discount
			discount *= e.Real.Discount()

			if terminal {
				break
			}
		}
	}

	e.Real.FreeState(state)

	e.Results.Time.Add(time.Since(start).Seconds())
	e.Results.UndiscountedReturn.Add(undiscounted)
	e.Results.DiscountedReturn.Add(discounted)
}

// MultiRun repeats Run until the run budget or the experiment timeout is
// exhausted.
func (e *Experiment) MultiRun() {
	for n := 0; n < e.ExpParams.NumRuns; n++ {
		log.Info().Int("run", n+1).Int("simulations", e.SearchParams.NumSimulations).Msg("starting run")

		e.SearchParams.Seed++
		e.Run()

		if e.Results.Time.Total() > e.ExpParams.TimeOut {
			log.Warn().Int("runs", n+1).Msg("timed out")
			break
		}
	}
}

// DiscountedReturn sweeps doubling simulation budgets and reports one row
// per budget.
func (e *Experiment) DiscountedReturn(name string, writer *metrics.Writer) ([]metrics.Row, error) {
	e.SearchParams.MaxDepth = horizon(e.Sim.Discount(), e.ExpParams.Accuracy, e.ExpParams.UndiscountedHorizon)
	e.ExpParams.NumSteps = horizon(e.Real.Discount(), e.ExpParams.Accuracy, e.ExpParams.UndiscountedHorizon)

	rows := make([]metrics.Row, 0, e.ExpParams.MaxDoubles-e.ExpParams.MinDoubles+1)
	for i := e.ExpParams.MinDoubles; i <= e.ExpParams.MaxDoubles; i++ {
		e.SearchParams.NumSimulations = 1 << i
		if e.SearchParams.TimeOutPerAction < 0 {
			e.SearchParams.NumStartStates = 1 << i
		}

		if i+e.ExpParams.TransformDoubles >= 0 {
			e.SearchParams.NumTransforms = 1 << (i + e.ExpParams.TransformDoubles)
		} else {
			e.SearchParams.NumTransforms = 1
		}
		e.SearchParams.MaxAttempts = e.SearchParams.NumTransforms * e.ExpParams.TransformAttempts

		e.Results.Clear()
		e.MultiRun()

		row := e.Results.Summarize(e.SearchParams.NumSimulations)
		rows = append(rows, row)
		log.Info().
			Int("simulations", row.Simulations).
			Int("runs", row.Runs).
			Float64("discountedReturn", row.DiscountedReturn).
			Float64("undiscountedReturn", row.UndiscountedReturn).
			Msg("sweep point")
	}

	if writer != nil {
		if err := writer.WriteRows(name, rows); err != nil {
			return rows, err
		}
		if err := plotReturns(writer.BaseDir(), name, rows); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

// horizon is the number of steps after which the discounted tail falls
// below accuracy.
func horizon(discount, accuracy float64, undiscountedHorizon int) int {
	if discount >= 1 {
		return undiscountedHorizon
	}
	return int(math.Ceil(math.Log(accuracy) / math.Log(discount)))
}
