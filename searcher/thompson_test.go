package searcher

import (
	"testing"

	"hplanning/pomdp"

	"github.com/stretchr/testify/require"
)

func TestNormalGammaPosteriorMean(t *testing.T) {
	ng := newNormalGamma()
	for i := 0; i < 200; i++ {
		ng.Add(3)
	}
	require.Equal(t, 200, ng.Count())
	require.InDelta(t, 3.0, ng.Sample(false, nil), 0.05, "the posterior mean should track the data")
}

func TestNormalGammaSamplingConcentrates(t *testing.T) {
	rng := pomdp.NewRNG(7)
	ng := newNormalGamma()
	for i := 0; i < 1000; i++ {
		ng.Add(2)
	}

	total := 0.0
	n := 200
	for i := 0; i < n; i++ {
		total += ng.Sample(true, rng)
	}
	require.InDelta(t, 2.0, total/float64(n), 0.2, "Thompson draws should concentrate around the data mean")
}

func TestDirichletWeights(t *testing.T) {
	rng := pomdp.NewRNG(7)
	d := newDirichlet()
	require.Nil(t, d.Sample(false, rng), "an empty posterior has no distribution")

	for i := 0; i < 30; i++ {
		d.Add(0)
	}
	for i := 0; i < 10; i++ {
		d.Add(2)
	}

	exact := d.Sample(false, rng)
	require.Len(t, exact, 2)
	require.Equal(t, 0, exact[0].obs)
	require.Equal(t, 2, exact[1].obs)
	require.InDelta(t, 0.75, exact[0].weight, 1e-12)
	require.InDelta(t, 0.25, exact[1].weight, 1e-12)

	sampled := d.Sample(true, rng)
	sum := 0.0
	for _, wo := range sampled {
		require.GreaterOrEqual(t, wo.weight, 0.0)
		sum += wo.weight
	}
	require.InDelta(t, 1.0, sum, 1e-9, "a Dirichlet draw is a distribution")
}

func TestThompsonSearchSelectsValidActions(t *testing.T) {
	sim := newTestSimulator(3, 2, 2)
	params := DefaultParams()
	params.ThompsonSampling = true
	params.MaxDepth = 3
	params.NumSimulations = 300
	m := newTestFlat(sim, params)

	action := m.SelectAction()
	require.GreaterOrEqual(t, action, 0)
	require.Less(t, action, sim.NumActions())

	explored := 0
	for a := 0; a < sim.NumActions(); a++ {
		if m.root.child(a).updateCount > 0 {
			explored++
		}
	}
	require.Equal(t, sim.NumActions(), explored, "every root action should have transition posteriors after search")
}
