package metrics

import (
	"hplanning/searcher"
)

// Results accumulates per-run series for one sweep configuration.
type Results struct {
	Reward             searcher.Series
	Time               searcher.Series
	TimePerAction      searcher.Series
	UndiscountedReturn searcher.Series
	DiscountedReturn   searcher.Series
	ExploredNodes      searcher.Series
	ExploredDepth      searcher.Series
}

func (r *Results) Clear() {
	r.Reward.Clear()
	r.Time.Clear()
	r.TimePerAction.Clear()
	r.UndiscountedReturn.Clear()
	r.DiscountedReturn.Clear()
	r.ExploredNodes.Clear()
	r.ExploredDepth.Clear()
}

// Row is one line of the sweep output: a simulation budget with the
// summary of its runs.
type Row struct {
	Simulations        int
	Runs               int
	UndiscountedReturn float64
	UndiscountedError  float64
	DiscountedReturn   float64
	DiscountedError    float64
	Time               float64
	TimePerAction      float64
	ExploredNodes      float64
	ExploredNodesError float64
	ExploredDepth      float64
	ExploredDepthError float64
}

func (r *Results) Summarize(simulations int) Row {
	return Row{
		Simulations:        simulations,
		Runs:               r.Time.Count(),
		UndiscountedReturn: r.UndiscountedReturn.Mean(),
		UndiscountedError:  r.UndiscountedReturn.StdErr(),
		DiscountedReturn:   r.DiscountedReturn.Mean(),
		DiscountedError:    r.DiscountedReturn.StdErr(),
		Time:               r.Time.Mean(),
		TimePerAction:      r.TimePerAction.Mean(),
		ExploredNodes:      r.ExploredNodes.Mean(),
		ExploredNodesError: r.ExploredNodes.StdErr(),
		ExploredDepth:      r.ExploredDepth.Mean(),
		ExploredDepthError: r.ExploredDepth.StdErr(),
	}
}
