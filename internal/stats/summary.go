package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of a score map.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Skew   float64 `json:"skewness"`
}

// Summarize computes a Summary of values. Spread statistics that need at
// least two samples are left at zero.
func Summarize(values map[string]float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		xs = append(xs, v)
	}
	sort.Float64s(xs)

	s := Summary{
		Count: len(xs),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
		Mean:  stat.Mean(xs, nil),
	}
	mid := len(xs) / 2
	if len(xs)%2 == 1 {
		s.Median = xs[mid]
	} else {
		s.Median = (xs[mid-1] + xs[mid]) / 2
	}
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, nil)
		if skew := stat.Skew(xs, nil); !math.IsNaN(skew) && !math.IsInf(skew, 0) {
			s.Skew = skew
		}
	}
	return s
}
