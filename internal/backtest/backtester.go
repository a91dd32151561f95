// Package backtest replays historical candles through the scoring pipeline
// to measure prediction accuracy and to produce outcome records for the
// calibration fitter.
package backtest

import (
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/calibration"
	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/signal"
	"github.com/oddsight/oddsight/internal/ta"
	"github.com/oddsight/oddsight/internal/utils"
)

// Config controls one replay run.
type Config struct {
	Thresholds signal.Thresholds
	TAConfig   ta.Config
	// Horizon is how many candles ahead a prediction resolves.
	Horizon int
	// MinConfidence drops predictions below this aggregator confidence.
	MinConfidence float64
	// Window caps how many trailing candles each step sees; 0 means all
	// history up to the step.
	Window int
}

// DefaultConfig returns a replay setup resolving one hour ahead on
// five-minute candles.
func DefaultConfig() Config {
	return Config{
		Thresholds:    signal.DefaultThresholds(),
		TAConfig:      ta.DefaultConfig(),
		Horizon:       12,
		MinConfidence: 60,
		Window:        100,
	}
}

// Result summarizes one replay: the outcome records it produced and the
// headline accuracy numbers.
type Result struct {
	Records  []models.OutcomeRecord
	Total    int
	Correct  int
	Accuracy float64
	Brier    float64
}

// Backtester replays series through the same scorer the live engine uses.
type Backtester struct {
	logger *logrus.Logger
}

// New builds a backtester.
func New(logger *logrus.Logger) *Backtester {
	return &Backtester{logger: logger}
}

// Replay walks the series candle by candle. At each step it scores the
// trailing window, converts the composite score to a raw probability, and
// resolves the prediction against whether the close `Horizon` candles later
// finished above the close at prediction time.
func (b *Backtester) Replay(series *models.Series, cfg Config) (*Result, error) {
	warmup := cfg.TAConfig.SlowSMA
	if warmup < ta.MinWarmup {
		warmup = ta.MinWarmup
	}
	if series == nil || series.Len() < warmup+cfg.Horizon+1 {
		got := 0
		if series != nil {
			got = series.Len()
		}
		return nil, utils.NewInsufficientDataError(warmup+cfg.Horizon+1, got)
	}

	scorer := signal.NewTimeframeScorer(cfg.Thresholds)
	aggregator := signal.NewAggregator(signal.AgreementKTimeframes, cfg.Thresholds)
	candles := series.Candles

	result := &Result{}
	var brierSum float64

	for i := warmup; i < len(candles)-cfg.Horizon; i++ {
		start := 0
		if cfg.Window > 0 && i+1 > cfg.Window {
			start = i + 1 - cfg.Window
		}
		window := &models.Series{Symbol: series.Symbol, Candles: candles[start : i+1]}

		snap := ta.ComputeSnapshot(window, cfg.TAConfig)
		score := scorer.Score("replay", 1, snap)
		if !score.Fired {
			continue
		}
		composite := aggregator.Combine([]signal.Score{score})
		if composite.Confidence < cfg.MinConfidence {
			continue
		}

		pRaw := calibration.RawProbability(composite.Score)

		outcome := 0
		if candles[i+cfg.Horizon].Close > candles[i].Close {
			outcome = 1
		}
		result.Records = append(result.Records, models.OutcomeRecord{
			PredictedProb: pRaw,
			Outcome:       outcome,
			ResolvedAt:    candles[i+cfg.Horizon].Time,
		})

		result.Total++
		if (pRaw > 0.5) == (outcome == 1) {
			result.Correct++
		}
		d := pRaw - float64(outcome)
		brierSum += d * d
	}

	if result.Total > 0 {
		result.Accuracy = float64(result.Correct) / float64(result.Total)
		result.Brier = brierSum / float64(result.Total)
	}

	b.logger.WithFields(logrus.Fields{
		"symbol":   series.Symbol,
		"total":    result.Total,
		"accuracy": result.Accuracy,
		"brier":    result.Brier,
	}).Info("Backtest replay finished")
	return result, nil
}

// ParamRanges is the grid searched by Optimize.
type ParamRanges struct {
	RSIOversold   []float64
	MinConfidence []float64
}

// DefaultParamRanges mirrors the standard search grid.
func DefaultParamRanges() ParamRanges {
	return ParamRanges{
		RSIOversold:   []float64{25, 30, 35},
		MinConfidence: []float64{55, 60, 65, 70},
	}
}

// GridResult reports the best cell of the grid search.
type GridResult struct {
	Best         Config
	BestResult   *Result
	BestAccuracy float64
	Tests        int
}

// Optimize grid-searches RSI zone bounds and the confidence floor, keeping
// the cell with the best accuracy. The overbought bound tracks the oversold
// one symmetrically (overbought = 100 - oversold).
func (b *Backtester) Optimize(series *models.Series, base Config, ranges ParamRanges) (*GridResult, error) {
	out := &GridResult{BestAccuracy: -1}

	for _, rsiOS := range ranges.RSIOversold {
		for _, conf := range ranges.MinConfidence {
			cfg := base
			cfg.Thresholds.RSIOversold = rsiOS
			cfg.Thresholds.RSIOverbought = 100 - rsiOS
			cfg.MinConfidence = conf

			res, err := b.Replay(series, cfg)
			if err != nil {
				return nil, err
			}
			out.Tests++

			if res.Total > 0 && res.Accuracy > out.BestAccuracy {
				out.BestAccuracy = res.Accuracy
				out.Best = cfg
				out.BestResult = res
			}
		}
	}
	return out, nil
}
