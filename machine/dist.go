package machine

import (
	"fmt"
	"math"
)

// DistKind selects the sampling family of a Dist.
type DistKind int

const (
	DistUniform DistKind = iota
	DistNormal
)

func (k DistKind) String() string {
	switch k {
	case DistUniform:
		return "uniform"
	case DistNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Dist describes how the engine will later draw a runtime value (a
// delay, a byte count, a repetition count). Synthesis derives the
// parameters analytically and never samples them.
//
// For DistUniform, Param1 and Param2 are the low and high bounds.
// For DistNormal, Param1 is the mean and Param2 the standard
// deviation. Start is added to every draw; Max, when positive, caps
// the draw.
type Dist struct {
	Kind   DistKind
	Param1 float64
	Param2 float64
	Start  float64
	Max    float64
}

// Uniform returns a uniform Dist over [lo, hi] with no offset or cap.
func Uniform(lo, hi float64) Dist {
	return Dist{Kind: DistUniform, Param1: lo, Param2: hi}
}

// Normal returns a normal Dist with the given mean and standard
// deviation, capped at max.
func Normal(mean, stdev, max float64) Dist {
	return Dist{Kind: DistNormal, Param1: mean, Param2: stdev, Max: max}
}

// Validate checks that the parameters are usable by the engine.
func (d Dist) Validate() error {
	switch d.Kind {
	case DistUniform:
		// Param1 above Param2 is allowed: degenerate uniform bounds
		// are the engine's to interpret.
	case DistNormal:
		if d.Param2 < 0 || math.IsNaN(d.Param2) {
			return fmt.Errorf("normal dist has invalid stdev %v", d.Param2)
		}
	default:
		return fmt.Errorf("unknown dist kind %d", d.Kind)
	}
	if math.IsNaN(d.Param1) || math.IsNaN(d.Param2) {
		return fmt.Errorf("dist has NaN parameter")
	}
	return nil
}
