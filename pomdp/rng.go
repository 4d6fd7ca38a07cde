package pomdp

import (
	"golang.org/x/exp/rand"
)

// RNG is the single randomness source for a planner. Every random choice in
// the search funnels through one instance so that runs are reproducible from
// the seed alone.
type RNG struct {
	src *rand.Rand
}

func NewRNG(seed uint64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

func (r *RNG) Intn(n int) int {
	return r.src.Intn(n)
}

func (r *RNG) Float64() float64 {
	return r.src.Float64()
}

func (r *RNG) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.src.Float64()
}

func (r *RNG) Bernoulli(p float64) bool {
	return r.src.Float64() < p
}

// PickInt draws uniformly from a non-empty slice.
func (r *RNG) PickInt(xs []int) int {
	if len(xs) == 0 {
		panic("cannot pick from empty slice")
	}
	return xs[r.src.Intn(len(xs))]
}

// Source exposes the underlying generator for distribution sampling.
func (r *RNG) Source() rand.Source {
	return r.src
}
