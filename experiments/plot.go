package experiments

import (
	"path/filepath"

	"hplanning/experiments/metrics"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// plotReturns writes a discounted-return-vs-simulations curve next to the
// CSV output.
func plotReturns(baseDir, name string, rows []metrics.Row) error {
	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = "Simulations"
	p.X.Scale = plot.LogScale{}
	p.Y.Label.Text = "Discounted return"

	points := make(plotter.XYs, len(rows))
	for i, row := range rows {
		points[i] = plotter.XY{X: float64(row.Simulations), Y: row.DiscountedReturn}
	}

	if err := plotutil.AddLinePoints(p, "discounted", points); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(baseDir, name+".png"))
}
