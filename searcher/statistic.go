package searcher

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Statistic is a running mean/count accumulator.
type Statistic struct {
	count int
	mean  float64
}

func (s *Statistic) Add(x float64) {
	s.count++
	s.mean += (x - s.mean) / float64(s.count)
}

func (s *Statistic) Set(mean float64, count int) {
	s.mean = mean
	s.count = count
}

func (s *Statistic) Mean() float64 {
	return s.mean
}

func (s *Statistic) Count() int {
	return s.count
}

func (s *Statistic) String() string {
	return fmt.Sprintf("%.3f (%d)", s.mean, s.count)
}

// Series keeps every sample so sweeps can report a mean with its error.
type Series struct {
	values []float64
}

func (s *Series) Add(x float64) {
	s.values = append(s.values, x)
}

func (s *Series) Count() int {
	return len(s.values)
}

func (s *Series) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return stat.Mean(s.values, nil)
}

func (s *Series) Total() float64 {
	total := 0.0
	for _, v := range s.values {
		total += v
	}
	return total
}

func (s *Series) StdErr() float64 {
	n := len(s.values)
	if n < 2 {
		return 0
	}
	return stat.StdErr(stat.StdDev(s.values, nil), float64(n))
}

func (s *Series) Clear() {
	s.values = nil
}
