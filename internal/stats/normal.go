// Package stats holds the standard normal distribution functions used by the
// closed-form pricer.
package stats

import "gonum.org/v1/gonum/stat/distuv"

// CDF returns the standard normal cumulative distribution at x.
// NaN and ±Inf propagate the way gonum's erfc-based implementation does.
func CDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// PDF returns the standard normal density at x: (1/√(2π))·e^(−x²/2).
func PDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
