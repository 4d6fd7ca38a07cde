package searcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFastUCBZeroCount(t *testing.T) {
	table := newUCBTable(1)
	for _, N := range []int{0, 1, 100, ucbRows, ucbRows * 2} {
		require.True(t, math.IsInf(table.FastUCB(N, 0), 1), "FastUCB(N, 0) should be +Inf")
	}
}

func TestFastUCBMonotone(t *testing.T) {
	table := newUCBTable(1)

	// Non-increasing in n.
	for _, N := range []int{1, 10, 500} {
		prev := table.FastUCB(N, 1)
		for n := 2; n < 200; n++ {
			cur := table.FastUCB(N, n)
			require.LessOrEqual(t, cur, prev, "FastUCB should be non-increasing in n")
			prev = cur
		}
	}

	// Non-decreasing in N.
	for _, n := range []int{1, 5, 150} {
		prev := table.FastUCB(0, n)
		for N := 1; N < 300; N++ {
			cur := table.FastUCB(N, n)
			require.GreaterOrEqual(t, cur, prev, "FastUCB should be non-decreasing in N")
			prev = cur
		}
	}
}

func TestFastUCBTableMatchesDirect(t *testing.T) {
	c := 2.5
	table := newUCBTable(c)
	for _, tc := range []struct{ N, n int }{{0, 1}, {5, 3}, {9999, 99}, {10000, 100}, {50000, 500}} {
		want := c * math.Sqrt(math.Log(float64(tc.N)+1)/float64(tc.n))
		require.InDelta(t, want, table.FastUCB(tc.N, tc.n), 1e-12, "table and direct computation should agree")
	}
}

func TestStatistic(t *testing.T) {
	var s Statistic
	s.Add(1)
	s.Add(2)
	s.Add(3)
	require.Equal(t, 3, s.Count())
	require.InDelta(t, 2.0, s.Mean(), 1e-12)

	s.Set(5, 7)
	require.Equal(t, 7, s.Count())
	require.InDelta(t, 5.0, s.Mean(), 1e-12)
}

func TestSeries(t *testing.T) {
	var s Series
	for _, v := range []float64{1, 2, 3, 4} {
		s.Add(v)
	}
	require.Equal(t, 4, s.Count())
	require.InDelta(t, 2.5, s.Mean(), 1e-12)
	require.InDelta(t, 10.0, s.Total(), 1e-12)
	require.Greater(t, s.StdErr(), 0.0)

	s.Clear()
	require.Equal(t, 0, s.Count())
}
