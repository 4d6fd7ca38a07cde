package searcher

import (
	"math"
	"sort"

	"hplanning/pomdp"

	"gonum.org/v1/gonum/stat/distuv"
)

// normalGamma is a conjugate posterior over the mean of a reward stream.
// Thompson draws sample a precision from the Gamma marginal, then a mean
// from the conditional Normal.
type normalGamma struct {
	mu     float64
	lambda float64
	alpha  float64
	beta   float64
	count  int
}

func newNormalGamma() *normalGamma {
	return &normalGamma{mu: 0, lambda: 1, alpha: 0.5, beta: 1}
}

func (ng *normalGamma) Add(x float64) {
	delta := x - ng.mu
	ng.mu = (ng.lambda*ng.mu + x) / (ng.lambda + 1)
	ng.alpha += 0.5
	ng.beta += 0.5 * ng.lambda * delta * delta / (ng.lambda + 1)
	ng.lambda++
	ng.count++
}

func (ng *normalGamma) Count() int {
	return ng.count
}

// Sample returns the posterior mean when sampling is off, else a Thompson
// draw of the mean.
func (ng *normalGamma) Sample(sampling bool, rng *pomdp.RNG) float64 {
	if !sampling {
		return ng.mu
	}
	gamma := distuv.Gamma{Alpha: ng.alpha, Beta: ng.beta, Src: rng.Source()}
	tau := gamma.Rand()
	if tau <= 0 {
		return ng.mu
	}
	normal := distuv.Normal{Mu: ng.mu, Sigma: 1 / math.Sqrt(ng.lambda*tau), Src: rng.Source()}
	return normal.Rand()
}

// weightedObs is one observation with its sampled probability.
type weightedObs struct {
	obs    int
	weight float64
}

// dirichlet is a Dirichlet-multinomial posterior over observed outcomes.
type dirichlet struct {
	counts map[int]float64
	total  float64
}

func newDirichlet() *dirichlet {
	return &dirichlet{counts: make(map[int]float64)}
}

func (d *dirichlet) Add(obs int) {
	d.counts[obs]++
	d.total++
}

// Sample returns the normalized observation distribution; with sampling on,
// the weights are a Dirichlet draw formed from per-outcome Gamma variates.
func (d *dirichlet) Sample(sampling bool, rng *pomdp.RNG) []weightedObs {
	if d.total == 0 {
		return nil
	}
	keys := make([]int, 0, len(d.counts))
	for obs := range d.counts {
		keys = append(keys, obs)
	}
	sort.Ints(keys)

	out := make([]weightedObs, 0, len(keys))
	if !sampling {
		for _, obs := range keys {
			out = append(out, weightedObs{obs: obs, weight: d.counts[obs] / d.total})
		}
		return out
	}

	sum := 0.0
	for _, obs := range keys {
		g := distuv.Gamma{Alpha: d.counts[obs], Beta: 1, Src: rng.Source()}
		w := g.Rand()
		out = append(out, weightedObs{obs: obs, weight: w})
		sum += w
	}
	if sum <= 0 {
		for i := range out {
			out[i].weight = 1 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i].weight /= sum
	}
	return out
}
