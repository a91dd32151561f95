// Package engine runs the full evaluation pipeline for one symbol and cycle:
// indicators, scoring, aggregation, calibration, EV math and the safety gate,
// producing an immutable Decision.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/calibration"
	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/signal"
	"github.com/oddsight/oddsight/internal/ta"
	"github.com/oddsight/oddsight/internal/utils"
)

// TimeframeWindow is one timeframe's candle window with its aggregation
// weight. The first window passed to Evaluate is the primary one; current
// price and volatility are read from it.
type TimeframeWindow struct {
	Name   string
	Weight float64
	Series *models.Series
}

// Input carries everything one evaluation needs. Odds and Strike are
// optional; without odds the market is assumed even money.
type Input struct {
	Symbol   string
	Windows  []TimeframeWindow
	Odds     *models.MarketOdds
	Strike   *float64
	MarketID string
}

// Evaluator wires the scoring pipeline together. It holds no per-symbol
// state, so one instance serves concurrent evaluations.
type Evaluator struct {
	scorer     *signal.TimeframeScorer
	aggregator *signal.Aggregator
	calibrator *calibration.Calibrator
	gate       GatePolicy
	taCfg      ta.Config
	logger     *logrus.Logger
}

// NewEvaluator builds an evaluator from its collaborators.
func NewEvaluator(
	scorer *signal.TimeframeScorer,
	aggregator *signal.Aggregator,
	calibrator *calibration.Calibrator,
	gate GatePolicy,
	taCfg ta.Config,
	logger *logrus.Logger,
) *Evaluator {
	return &Evaluator{
		scorer:     scorer,
		aggregator: aggregator,
		calibrator: calibrator,
		gate:       gate,
		taCfg:      taCfg,
		logger:     logger,
	}
}

// Evaluate runs one full cycle for a symbol. Every window must carry at
// least ta.MinWarmup candles; shorter input returns an insufficient-data
// error and no Decision.
func (e *Evaluator) Evaluate(in Input) (*models.Decision, error) {
	if len(in.Windows) == 0 {
		return nil, utils.NewInsufficientDataError(1, 0)
	}
	for _, w := range in.Windows {
		if w.Series == nil || w.Series.Len() < ta.MinWarmup {
			got := 0
			if w.Series != nil {
				got = w.Series.Len()
			}
			return nil, utils.NewInsufficientDataError(ta.MinWarmup, got)
		}
	}

	scores := make([]signal.Score, 0, len(in.Windows))
	for _, w := range in.Windows {
		snap := ta.ComputeSnapshot(w.Series, e.taCfg)
		scores = append(scores, e.scorer.Score(w.Name, w.Weight, snap))
	}
	composite := e.aggregator.Combine(scores)

	rawProb, pYes := e.calibrator.Calibrate(composite.Score)

	primary := in.Windows[0].Series
	closes := primary.Closes()
	currentPrice := closes[len(closes)-1]
	volatility := ta.Volatility(closes, e.taCfg.VolatilityWindow)

	var distancePct *float64
	if in.Strike != nil && currentPrice > 0 {
		d := (*in.Strike - currentPrice) / currentPrice * 100
		distancePct = &d
	}

	ev, edge := expectedValue(pYes, in.Odds)
	bettable := e.gate.Allows(edge, distancePct, volatility)

	direction := "NO"
	if pYes > 0.5 {
		direction = "YES"
	}

	decision := &models.Decision{
		ID:               uuid.New().String(),
		Symbol:           in.Symbol,
		Signal:           direction,
		Band:             composite.Band,
		ProbYes:          pYes,
		Confidence:       composite.Confidence,
		Edge:             edge,
		ExpectedValue:    ev,
		IsBettable:       bettable,
		CurrentPrice:     currentPrice,
		PredictedPrice:   currentPrice * (1 + composite.Score*0.02),
		DistanceToStrike: distancePct,
		Volatility:       volatility,
		Reasons:          buildReasons(composite, rawProb, pYes, edge),
		MarketID:         in.MarketID,
		CreatedAt:        time.Now().UTC(),
	}

	e.logger.WithFields(logrus.Fields{
		"symbol":      in.Symbol,
		"signal":      direction,
		"band":        composite.Band.String(),
		"p_yes":       pYes,
		"edge":        edge,
		"ev":          ev,
		"is_bettable": bettable,
	}).Debug("Evaluated symbol")

	return decision, nil
}

// expectedValue computes the $1-stake expected value and the edge over the
// market-implied probability. Without odds the market is treated as even
// money.
func expectedValue(pYes float64, odds *models.MarketOdds) (ev, edge float64) {
	if odds == nil {
		return pYes - (1 - pYes), pYes - 0.5
	}

	edge = pYes - odds.ImpliedProbYes()
	yesPayout := 1/odds.YesPrice - 1
	noPayout := 1/odds.NoPrice - 1
	ev = pYes*yesPayout - (1-pYes)*noPayout
	return ev, edge
}

// buildReasons assembles the human-readable audit trail: the composite
// direction, the probabilities, the edge, then each module's rule hits.
func buildReasons(composite models.CompositeSignal, rawProb, pYes, edge float64) []string {
	reasons := make([]string, 0, 8)

	if composite.Score > 0.3 {
		reasons = append(reasons, fmt.Sprintf("Bullish momentum (score: %.2f)", composite.Score))
	} else if composite.Score < -0.3 {
		reasons = append(reasons, fmt.Sprintf("Bearish momentum (score: %.2f)", composite.Score))
	}

	reasons = append(reasons, fmt.Sprintf("Win probability: %.1f%% (raw %.1f%%)", pYes*100, rawProb*100))

	if edge > 0 {
		reasons = append(reasons, fmt.Sprintf("Edge: +%.1f%%", edge*100))
	} else if edge < 0 {
		reasons = append(reasons, fmt.Sprintf("Edge: %.1f%% (negative)", edge*100))
	}

	for _, m := range composite.Modules {
		for _, r := range m.Reasons {
			reasons = append(reasons, fmt.Sprintf("%s: %s", m.Name, r))
		}
	}
	return reasons
}
