package models

import (
	"time"
)

// SignalBand is the discrete classification of a composite signal. Values are
// ordered from the strongest NO conviction to the strongest YES conviction so
// bands can be compared directly instead of by string matching.
type SignalBand int

const (
	BandUltimateNo SignalBand = iota
	BandStrongNo
	BandNo
	BandHold
	BandYes
	BandStrongYes
	BandUltimateYes
)

var bandNames = map[SignalBand]string{
	BandUltimateNo:  "ULTIMATE NO",
	BandStrongNo:    "STRONG NO",
	BandNo:          "NO",
	BandHold:        "HOLD",
	BandYes:         "YES",
	BandStrongYes:   "STRONG YES",
	BandUltimateYes: "ULTIMATE YES",
}

// String returns the human-readable label used in alerts and persistence.
func (b SignalBand) String() string {
	if name, ok := bandNames[b]; ok {
		return name
	}
	return "HOLD"
}

// Bullish reports whether the band is on the YES side of HOLD.
func (b SignalBand) Bullish() bool { return b > BandHold }

// Bearish reports whether the band is on the NO side of HOLD.
func (b SignalBand) Bearish() bool { return b < BandHold }

// ModuleScore is the output of a single analysis module or timeframe: a
// directional score with the reasons that produced it. Fired reports whether
// any rule voted; a score that did not fire must not dilute aggregation.
type ModuleScore struct {
	Name    string   `json:"name"`
	Score   float64  `json:"score"`
	Weight  float64  `json:"weight"`
	Fired   bool     `json:"fired"`
	Reasons []string `json:"reasons"`
}

// CompositeSignal is the aggregated view over all contributing modules.
type CompositeSignal struct {
	Score      float64     `json:"score"`
	Agreement  float64     `json:"agreement"`
	Confidence float64     `json:"confidence"`
	Band       SignalBand  `json:"band"`
	Modules    []ModuleScore `json:"modules"`
}

// Decision is the immutable final record for one (symbol, cycle) evaluation.
type Decision struct {
	ID               string     `json:"id" db:"id"`
	Symbol           string     `json:"symbol" db:"symbol"`
	Signal           string     `json:"signal" db:"signal"` // "YES" or "NO"
	Band             SignalBand `json:"band" db:"band"`
	ProbYes          float64    `json:"p_yes" db:"p_yes"`
	Confidence       float64    `json:"confidence" db:"confidence"`
	Edge             float64    `json:"edge" db:"edge"`
	ExpectedValue    float64    `json:"ev" db:"ev"`
	IsBettable       bool       `json:"is_bettable" db:"is_bettable"`
	CurrentPrice     float64    `json:"current_price" db:"current_price"`
	PredictedPrice   float64    `json:"predicted_price" db:"predicted_price"`
	DistanceToStrike *float64   `json:"distance_to_strike,omitempty" db:"distance_to_strike"`
	Volatility       float64    `json:"volatility" db:"volatility"`
	Reasons          []string   `json:"reasons" db:"reasons"`
	MarketID         string     `json:"market_id,omitempty" db:"market_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// OutcomeRecord pairs a predicted probability with the realized result of a
// resolved market. Consumed only by the calibration fitter.
type OutcomeRecord struct {
	DecisionID    string    `json:"decision_id" db:"decision_id"`
	PredictedProb float64   `json:"predicted_prob" db:"predicted_prob"`
	Outcome       int       `json:"outcome" db:"outcome"` // 1 = YES resolved, 0 = NO
	ResolvedAt    time.Time `json:"resolved_at" db:"resolved_at"`
}
