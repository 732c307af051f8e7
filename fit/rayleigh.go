// Package fit contains the interval searches that partition a
// continuous rate or probability curve into discrete per-state
// intervals. Both searches are deterministic; callers advance a
// cursor along the curve one interval at a time, so successive calls
// must stay strictly sequential.
package fit

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxCoverage is the cumulative probability at which the padding
// window is considered exhausted, chosen empirically as a bit more
// than six standard deviations.
const maxCoverage = 0.9996645373720975

// epsilon64 is the 64-bit machine epsilon, the termination tolerance
// of the bounded search.
const epsilon64 = 2.220446049250313e-16

// RayleighCDF returns the cumulative probability of the Rayleigh
// distribution with the given scale at t: 1 - e^(-t²/(2·scale²)).
func RayleighCDF(t, scale float64) float64 {
	// gonum has no Rayleigh type; Rayleigh(σ) is Weibull(K=2, λ=σ√2),
	// which distuv documents as the valid K=2 special case.
	return distuv.Weibull{K: 2, Lambda: scale * math.Sqrt2}.CDF(t)
}

// RayleighMaxT returns the point where the Rayleigh CDF reaches
// maxCoverage. Closed form; strictly increasing in scale.
func RayleighMaxT(scale float64) float64 {
	return math.Sqrt(-2 * scale * scale * math.Log(1-maxCoverage))
}

// IntervalWidth finds w such that CDF(a+w) - CDF(a) matches area, by
// bisection from the upper bound maxT. Search rather than direct
// inversion: numerical error affects direct calculation significantly
// near the curve tail.
func IntervalWidth(a, maxT, area, scale float64) float64 {
	b := maxT
	increment := (b - a) / 2

	currArea := RayleighCDF(b, scale) - RayleighCDF(a, scale)
	currDiff := area - currArea

	for math.Abs(currDiff) > epsilon64 && increment > 0 {
		if currDiff < 0 {
			b -= increment
		} else {
			b += increment
		}
		increment /= 2

		currArea = RayleighCDF(b, scale) - RayleighCDF(a, scale)
		currDiff = area - currArea
	}

	return b - a
}
