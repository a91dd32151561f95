package engine

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/calibration"
	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/signal"
	"github.com/oddsight/oddsight/internal/ta"
	"github.com/oddsight/oddsight/internal/utils"
)

func newTestEvaluator(gate GatePolicy) *Evaluator {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	th := signal.DefaultThresholds()
	return NewEvaluator(
		signal.NewTimeframeScorer(th),
		signal.NewAggregator(signal.AgreementKTimeframes, th),
		calibration.NewCalibrator(calibration.DefaultParams()),
		gate,
		ta.DefaultConfig(),
		logger,
	)
}

func seriesWithTrend(symbol string, n int, step float64) *models.Series {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	price := 100.0
	for i := range candles {
		price += step
		candles[i] = models.Candle{
			Time:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   price - step,
			High:   math.Max(price, price-step) + 0.3,
			Low:    math.Min(price, price-step) - 0.3,
			Close:  price,
			Volume: 1500,
		}
	}
	return &models.Series{Symbol: symbol, Candles: candles}
}

func TestExpectedValue_EvenOddsExact(t *testing.T) {
	odds := &models.MarketOdds{YesPrice: 0.5, NoPrice: 0.5}
	ev, edge := expectedValue(0.6, odds)
	assert.InDelta(t, 0.1, edge, 1e-12)
	assert.InDelta(t, 0.2, ev, 1e-12)
}

func TestExpectedValue_NoOdds(t *testing.T) {
	ev, edge := expectedValue(0.7, nil)
	assert.InDelta(t, 0.4, ev, 1e-12)
	assert.InDelta(t, 0.2, edge, 1e-12)
}

func TestExpectedValue_SkewedOdds(t *testing.T) {
	odds := &models.MarketOdds{YesPrice: 0.8, NoPrice: 0.25}
	ev, edge := expectedValue(0.6, odds)
	// payout_yes = 0.25, payout_no = 3.
	assert.InDelta(t, 0.6*0.25-0.4*3, ev, 1e-12)
	assert.InDelta(t, -0.2, edge, 1e-12)
}

func TestEvaluate_InsufficientData(t *testing.T) {
	e := newTestEvaluator(NewLearningGate())

	_, err := e.Evaluate(Input{
		Symbol:  "BTCUSDT",
		Windows: []TimeframeWindow{{Name: "5m", Weight: 1, Series: seriesWithTrend("BTCUSDT", 10, 1)}},
	})
	require.Error(t, err)
	assert.True(t, utils.IsInsufficientData(err))

	_, err = e.Evaluate(Input{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.True(t, utils.IsInsufficientData(err))
}

// A relentless decline leaves every oscillator oversold, so the rules lean
// toward a bounce: the composite is bullish even though the trend is down.
func TestEvaluate_OversoldDeclineLeansYes(t *testing.T) {
	e := newTestEvaluator(NewLearningGate())
	series := seriesWithTrend("BTCUSDT", 120, -0.5)

	strike := series.Candles[119].Close * 0.9
	odds := &models.MarketOdds{YesPrice: 0.5, NoPrice: 0.5, FetchedAt: time.Now()}

	decision, err := e.Evaluate(Input{
		Symbol: "BTCUSDT",
		Windows: []TimeframeWindow{
			{Name: "5m", Weight: signal.Weight5m, Series: series},
			{Name: "15m", Weight: signal.Weight15m, Series: series},
			{Name: "1h", Weight: signal.Weight1h, Series: series},
		},
		Odds:     odds,
		Strike:   &strike,
		MarketID: "mkt-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "YES", decision.Signal)
	assert.Greater(t, decision.ProbYes, 0.5)
	assert.Greater(t, decision.Edge, 0.0)
	assert.True(t, decision.IsBettable)
	assert.True(t, decision.Band.Bullish())
	assert.NotEmpty(t, decision.ID)
	assert.NotEmpty(t, decision.Reasons)
	assert.Equal(t, "mkt-1", decision.MarketID)
	require.NotNil(t, decision.DistanceToStrike)
	assert.InDelta(t, -10.0, *decision.DistanceToStrike, 0.01)
	assert.Greater(t, decision.PredictedPrice, decision.CurrentPrice)
}

// The mirrored rally is overbought across the board and leans NO.
func TestEvaluate_OverboughtRallyLeansNo(t *testing.T) {
	e := newTestEvaluator(NewLearningGate())
	series := seriesWithTrend("ETHUSDT", 120, 0.5)

	decision, err := e.Evaluate(Input{
		Symbol:  "ETHUSDT",
		Windows: []TimeframeWindow{{Name: "15m", Weight: 1, Series: series}},
	})
	require.NoError(t, err)

	assert.Equal(t, "NO", decision.Signal)
	assert.Less(t, decision.ProbYes, 0.5)
	assert.True(t, decision.Band.Bearish())
	assert.Less(t, decision.PredictedPrice, decision.CurrentPrice)
}

func TestEvaluate_StrikeOnTopOfPriceNotBettable(t *testing.T) {
	e := newTestEvaluator(NewLearningGate())
	series := seriesWithTrend("BTCUSDT", 120, 0.5)

	strike := series.Candles[119].Close * 1.001
	decision, err := e.Evaluate(Input{
		Symbol:  "BTCUSDT",
		Windows: []TimeframeWindow{{Name: "15m", Weight: 1, Series: series}},
		Strike:  &strike,
	})
	require.NoError(t, err)
	assert.False(t, decision.IsBettable)
}

func TestEvaluate_NegativeEdgeNotBettable(t *testing.T) {
	e := newTestEvaluator(NewLearningGate())
	series := seriesWithTrend("BTCUSDT", 120, 0.5)

	// The market already prices YES above anything the sigmoid can produce.
	odds := &models.MarketOdds{YesPrice: 0.99, NoPrice: 0.02}
	decision, err := e.Evaluate(Input{
		Symbol:  "BTCUSDT",
		Windows: []TimeframeWindow{{Name: "15m", Weight: 1, Series: series}},
		Odds:    odds,
	})
	require.NoError(t, err)
	assert.False(t, decision.IsBettable)
	assert.Less(t, decision.Edge, 0.0)
}

func TestEvaluate_CalibrationShiftsProbability(t *testing.T) {
	series := seriesWithTrend("BTCUSDT", 120, 0.5)
	in := Input{
		Symbol:  "BTCUSDT",
		Windows: []TimeframeWindow{{Name: "15m", Weight: 1, Series: series}},
	}

	identity := newTestEvaluator(NewLearningGate())
	base, err := identity.Evaluate(in)
	require.NoError(t, err)

	damped := newTestEvaluator(NewLearningGate())
	damped.calibrator.SetParams(calibration.Params{Slope: 0.5, Intercept: 0.25})
	shifted, err := damped.Evaluate(in)
	require.NoError(t, err)

	assert.InDelta(t, 0.5*base.ProbYes+0.25, shifted.ProbYes, 1e-9)
}
