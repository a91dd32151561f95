// Package ta implements pure technical-indicator math over OHLCV windows.
//
// All functions are stateless and side-effect free. Outputs are aligned with
// their inputs: positions inside an indicator's warm-up window, and positions
// where a formula's denominator vanishes without a defined saturation value,
// carry NaN. Callers are expected to skip NaN rather than vote on it.
package ta

import (
	"math"

	"github.com/oddsight/oddsight/internal/models"
)

// MinWarmup is the global floor on window length before any scoring runs.
const MinWarmup = 30

// SMA computes the simple moving average with the given period. The first
// period-1 positions are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	nans := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nans++
		} else {
			sum += v
		}
		if i >= period {
			if old := values[i-period]; math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && nans == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with span semantics
// (alpha = 2/(period+1)), seeded from the first value.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// wilderSmooth applies Wilder's smoothing (alpha = 1/period) seeded from the
// first defined value. NaN inputs stay NaN in the output without resetting
// the smoothing state.
func wilderSmooth(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 1.0 / float64(period)
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RSI computes the relative strength index over close prices. A window whose
// average loss is zero saturates to 100 rather than dividing by zero; one
// whose average gain is zero reads 0.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	avgGain := SMA(gains[1:], period)
	avgLoss := SMA(losses[1:], period)
	for i := period - 1; i < len(avgGain); i++ {
		g, l := avgGain[i], avgLoss[i]
		if l == 0 {
			out[i+1] = 100
			continue
		}
		rs := g / l
		out[i+1] = 100 - 100/(1+rs)
	}
	return out
}

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the moving average convergence divergence with the given
// fast, slow and signal periods.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(macd, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - sig[i]
	}
	return MACDResult{MACD: macd, Signal: sig, Histogram: hist}
}

// BollingerResult holds the three bands and %B for the latest candle.
// PercentB is on a 0-100 scale; a zero band width reads as the neutral 50.
type BollingerResult struct {
	Upper    []float64
	Middle   []float64
	Lower    []float64
	PercentB float64
}

// Bollinger computes Bollinger bands (middle = SMA, bands = +-stdDev sample
// standard deviations) and %B of the last close within the last bands.
func Bollinger(closes []float64, period int, stdDev float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{
		Upper:    nanSlice(n),
		Middle:   SMA(closes, period),
		Lower:    nanSlice(n),
		PercentB: math.NaN(),
	}
	if period <= 1 || n < period {
		return res
	}
	for i := period - 1; i < n; i++ {
		sd := sampleStdDev(closes[i-period+1:i+1], res.Middle[i])
		res.Upper[i] = res.Middle[i] + stdDev*sd
		res.Lower[i] = res.Middle[i] - stdDev*sd
	}
	upper, lower := res.Upper[n-1], res.Lower[n-1]
	width := upper - lower
	if width > 0 {
		res.PercentB = (closes[n-1] - lower) / width * 100
	} else {
		res.PercentB = 50 // zero-width bands carry no information
	}
	return res
}

// ATR computes the average true range as a rolling mean of the true range.
func ATR(candles []models.Candle, period int) []float64 {
	tr := trueRange(candles)
	return SMA(tr, period)
}

// VolumeRatio returns the last volume as a percentage of its rolling average
// (100 = average). A zero average reads as the neutral 100.
func VolumeRatio(volumes []float64, period int) float64 {
	if len(volumes) == 0 {
		return 100
	}
	avg := SMA(volumes, period)
	last := avg[len(avg)-1]
	if math.IsNaN(last) || last <= 0 {
		return 100
	}
	return volumes[len(volumes)-1] / last * 100
}

// Volatility returns the sample standard deviation of percent returns over
// the trailing `window` candles. Shorter series fall back to a 2% default.
func Volatility(closes []float64, window int) float64 {
	if len(closes) < window+1 {
		return 0.02
	}
	tail := closes[len(closes)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			continue
		}
		returns = append(returns, tail[i]/tail[i-1]-1)
	}
	if len(returns) < 2 {
		return 0.02
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	return sampleStdDev(returns, mean)
}

func trueRange(candles []models.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		hl := c.High - c.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := candles[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return tr
}

// sampleStdDev computes the ddof=1 standard deviation around a known mean.
func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// last returns the final element of a series, or NaN for an empty one.
func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
