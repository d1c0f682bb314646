package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// median returns the middle of vals, averaging the two central values for
// even counts. NaN for an empty slice.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantile(cp, 0.5)
}

// quantile interpolates linearly between the order statistics around
// position q*(n-1) of an ascending slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// meanStd returns the mean and the sample standard deviation (n-1
// denominator). std is NaN below two observations.
func meanStd(vals []float64) (mean, std float64) {
	switch len(vals) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return vals[0], math.NaN()
	}
	return stat.MeanStdDev(vals, nil)
}

// mean returns NaN for an empty slice.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
