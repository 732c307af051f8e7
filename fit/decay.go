package fit

import "math"

// countEpsilon is the termination tolerance of the unbounded search.
const countEpsilon = 1e-5

// Rate returns the exponential decay curve R·D^t at time t.
func Rate(t, initial, decay float64) float64 {
	return initial * math.Pow(decay, t)
}

// PacketIntervalWidth finds w such that the rate at the interval
// midpoint times w approximates count (a rectangular approximation
// centered on the midpoint): Rate(a + w/2)·w ≈ count. The curve is
// unbounded above, so the search doubles its step while undershooting
// and switches to halving once it has ever overshot.
//
// Returns +Inf when the residual area under the curve cannot supply
// count packets: the midpoint then runs away toward infinity and the
// interval has no finite end.
func PacketIntervalWidth(a, count, initial, decay float64) float64 {
	mid := a
	step := 0.5
	decreasing := false

	currCount := 0.0
	currDiff := count - currCount

	for math.Abs(currDiff) > countEpsilon {
		if currDiff < 0 {
			mid -= step
			decreasing = true
		} else {
			mid += step
		}

		if decreasing {
			step /= 2
		} else {
			step *= 2
		}

		if math.IsInf(mid, 1) {
			return math.Inf(1)
		}

		currCount = Rate(mid, initial, decay) * (mid - a) * 2
		currDiff = count - currCount
	}

	return (mid - a) * 2
}
