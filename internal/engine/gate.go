package engine

import "math"

// GatePolicy decides whether a decision with the given edge and market
// geometry is worth acting on. Policies only filter; they never change the
// probabilities.
type GatePolicy interface {
	// Allows reports whether the bet passes. distancePct is the signed
	// percent distance from current price to strike, nil when no strike is
	// known. volatility is the trailing stddev of percent returns.
	Allows(edge float64, distancePct *float64, volatility float64) bool
	Name() string
}

// LearningGate is the default, deliberately loose policy: it accepts any
// positive edge unless the price sits almost on top of the strike. Borderline
// signals still flow through so the calibration loop gets data on them.
type LearningGate struct {
	// MinDistancePct rejects bets closer to the strike than this, in
	// percent of current price.
	MinDistancePct float64
}

// NewLearningGate builds the default gate with a 0.5% no-bet zone.
func NewLearningGate() LearningGate {
	return LearningGate{MinDistancePct: 0.5}
}

func (g LearningGate) Allows(edge float64, distancePct *float64, _ float64) bool {
	if edge <= 0 {
		return false
	}
	if distancePct != nil && math.Abs(*distancePct) < g.MinDistancePct {
		return false
	}
	return true
}

func (g LearningGate) Name() string { return "learning" }

// VolatilityGate is the stricter alternative: on top of the learning rules it
// rejects bets whose strike sits within reach of normal price noise, scaled
// by recent volatility.
type VolatilityGate struct {
	MinDistancePct float64
	// Multiplier scales volatility (as a fraction) into a percent distance
	// floor: reject when |distance| < Multiplier * volatility * 100.
	Multiplier float64
}

// NewVolatilityGate builds the volatility-aware gate. A multiplier of 1
// requires the strike to be more than one standard deviation away.
func NewVolatilityGate(multiplier float64) VolatilityGate {
	return VolatilityGate{MinDistancePct: 0.5, Multiplier: multiplier}
}

func (g VolatilityGate) Allows(edge float64, distancePct *float64, volatility float64) bool {
	if !(LearningGate{MinDistancePct: g.MinDistancePct}).Allows(edge, distancePct, volatility) {
		return false
	}
	if distancePct != nil && !math.IsNaN(volatility) {
		if math.Abs(*distancePct) < g.Multiplier*volatility*100 {
			return false
		}
	}
	return true
}

func (g VolatilityGate) Name() string { return "volatility" }
