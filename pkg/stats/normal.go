package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// ZForConfidence returns the two-sided critical value for the given confidence
// level, e.g. 0.95 -> ~1.96. Out-of-range levels fall back to Z95.
func ZForConfidence(level float64) float64 {
	if level <= 0 || level >= 1 {
		return Z95
	}
	return stdNormal.Quantile(1 - (1-level)/2)
}

// PValue returns the two-sided p-value for a z statistic.
func PValue(z float64) float64 {
	return 2 * stdNormal.Survival(math.Abs(z))
}
