package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/utils"
)

// sawtoothSeries oscillates hard enough that oscillator rules keep firing.
func sawtoothSeries(n int) *models.Series {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	price := 100.0
	for i := range candles {
		// Eight candles up, eight down.
		if (i/8)%2 == 0 {
			price += 1.5
		} else {
			price -= 1.5
		}
		candles[i] = models.Candle{
			Time:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   price,
			High:   price + 1.8,
			Low:    price - 1.8,
			Close:  price,
			Volume: 1000,
		}
	}
	return &models.Series{Symbol: "BTCUSDT", Candles: candles}
}

func TestReplay_TooShortSeries(t *testing.T) {
	b := New(logrus.New())
	_, err := b.Replay(sawtoothSeries(40), DefaultConfig())
	require.Error(t, err)
	assert.True(t, utils.IsInsufficientData(err))
}

func TestReplay_ProducesResolvedRecords(t *testing.T) {
	b := New(logrus.New())
	cfg := DefaultConfig()
	cfg.MinConfidence = 0 // keep everything, the series is synthetic

	res, err := b.Replay(sawtoothSeries(400), cfg)
	require.NoError(t, err)
	require.Greater(t, res.Total, 0)
	assert.Len(t, res.Records, res.Total)

	for _, rec := range res.Records {
		assert.GreaterOrEqual(t, rec.PredictedProb, 0.05)
		assert.LessOrEqual(t, rec.PredictedProb, 0.95)
		assert.Contains(t, []int{0, 1}, rec.Outcome)
		assert.False(t, rec.ResolvedAt.IsZero())
	}

	assert.GreaterOrEqual(t, res.Accuracy, 0.0)
	assert.LessOrEqual(t, res.Accuracy, 1.0)
	assert.False(t, math.IsNaN(res.Brier))
	assert.Equal(t, res.Total, res.Correct+(res.Total-res.Correct))
}

func TestReplay_ConfidenceFloorFilters(t *testing.T) {
	b := New(logrus.New())

	loose := DefaultConfig()
	loose.MinConfidence = 0
	strict := DefaultConfig()
	strict.MinConfidence = 101 // nothing can pass

	series := sawtoothSeries(400)
	looseRes, err := b.Replay(series, loose)
	require.NoError(t, err)
	strictRes, err := b.Replay(series, strict)
	require.NoError(t, err)

	assert.Greater(t, looseRes.Total, strictRes.Total)
	assert.Zero(t, strictRes.Total)
}

func TestOptimize_SearchesFullGrid(t *testing.T) {
	b := New(logrus.New())
	cfg := DefaultConfig()
	cfg.MinConfidence = 0

	ranges := ParamRanges{
		RSIOversold:   []float64{25, 35},
		MinConfidence: []float64{0, 50},
	}
	got, err := b.Optimize(sawtoothSeries(400), cfg, ranges)
	require.NoError(t, err)

	assert.Equal(t, 4, got.Tests)
	require.NotNil(t, got.BestResult)
	assert.GreaterOrEqual(t, got.BestAccuracy, 0.0)
	// The symmetric overbought bound follows the chosen oversold one.
	assert.InDelta(t, 100-got.Best.Thresholds.RSIOversold, got.Best.Thresholds.RSIOverbought, 1e-9)
}
