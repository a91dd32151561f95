package ta

import (
	"math"

	"github.com/oddsight/oddsight/internal/models"
)

// ADXResult holds the trend-strength series: ADX plus both directional lines.
type ADXResult struct {
	ADX     []float64
	DIPlus  []float64
	DIMinus []float64
}

// ADX computes the average directional index with Wilder smoothing
// (alpha = 1/period). When +DI and -DI sum to zero DX is undefined and
// propagates as NaN through the ADX smoothing; callers must skip it.
func ADX(candles []models.Candle, period int) ADXResult {
	n := len(candles)
	res := ADXResult{ADX: nanSlice(n), DIPlus: nanSlice(n), DIMinus: nanSlice(n)}
	if period <= 0 || n < 2 {
		return res
	}

	tr := trueRange(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	trSm := wilderSmooth(tr, period)
	plusSm := wilderSmooth(plusDM, period)
	minusSm := wilderSmooth(minusDM, period)

	dx := nanSlice(n)
	for i := 0; i < n; i++ {
		if trSm[i] == 0 {
			continue
		}
		res.DIPlus[i] = 100 * plusSm[i] / trSm[i]
		res.DIMinus[i] = 100 * minusSm[i] / trSm[i]
		sum := res.DIPlus[i] + res.DIMinus[i]
		if sum == 0 {
			continue // DX undefined, leave NaN
		}
		dx[i] = 100 * math.Abs(res.DIPlus[i]-res.DIMinus[i]) / sum
	}
	res.ADX = wilderSmooth(dx, period)
	return res
}

// StochResult holds the %K and %D oscillator series.
type StochResult struct {
	K []float64
	D []float64
}

// Stochastic computes the stochastic oscillator. A flat high-low range over
// the lookback leaves %K undefined (NaN).
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) StochResult {
	n := len(candles)
	res := StochResult{K: nanSlice(n), D: nanSlice(n)}
	if kPeriod <= 0 || n < kPeriod {
		return res
	}
	for i := kPeriod - 1; i < n; i++ {
		lowMin, highMax := rangeExtremes(candles[i-kPeriod+1 : i+1])
		if highMax == lowMin {
			continue
		}
		res.K[i] = 100 * (candles[i].Close - lowMin) / (highMax - lowMin)
	}
	res.D = SMA(res.K, dPeriod)
	return res
}

// WilliamsR computes Williams %R (-100..0). A flat range yields NaN.
func WilliamsR(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := nanSlice(n)
	if period <= 0 || n < period {
		return out
	}
	for i := period - 1; i < n; i++ {
		lowMin, highMax := rangeExtremes(candles[i-period+1 : i+1])
		if highMax == lowMin {
			continue
		}
		out[i] = -100 * (highMax - candles[i].Close) / (highMax - lowMin)
	}
	return out
}

// CCI computes the commodity channel index over typical prices. A zero mean
// absolute deviation leaves the value undefined.
func CCI(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := nanSlice(n)
	if period <= 0 || n < period {
		return out
	}
	tp := typicalPrices(candles)
	sma := SMA(tp, period)
	for i := period - 1; i < n; i++ {
		window := tp[i-period+1 : i+1]
		dev := 0.0
		for _, v := range window {
			dev += math.Abs(v - sma[i])
		}
		dev /= float64(period)
		if dev == 0 {
			continue
		}
		out[i] = (tp[i] - sma[i]) / (0.015 * dev)
	}
	return out
}

// MFI computes the money flow index. A window with zero negative flow
// saturates to 100 instead of dividing by zero.
func MFI(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return out
	}
	tp := typicalPrices(candles)
	posFlow := make([]float64, n)
	negFlow := make([]float64, n)
	for i := 1; i < n; i++ {
		flow := tp[i] * candles[i].Volume
		if tp[i] > tp[i-1] {
			posFlow[i] = flow
		} else if tp[i] < tp[i-1] {
			negFlow[i] = flow
		}
	}
	for i := period; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			pos += posFlow[j]
			neg += negFlow[j]
		}
		if neg == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+pos/neg)
	}
	return out
}

// VWAP computes the cumulative volume-weighted average price. Positions
// before any volume has traded are NaN.
func VWAP(candles []models.Candle) []float64 {
	out := nanSlice(len(candles))
	var cumPV, cumVol float64
	for i, c := range candles {
		tp := (c.High + c.Low + c.Close) / 3
		cumPV += tp * c.Volume
		cumVol += c.Volume
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

// PivotLevels holds classic pivot-point levels derived from one candle.
type PivotLevels struct {
	Pivot float64
	R1    float64
	R2    float64
	R3    float64
	S1    float64
	S2    float64
	S3    float64
}

// PivotPoints computes classic pivot levels from the last candle.
func PivotPoints(c models.Candle) PivotLevels {
	pivot := (c.High + c.Low + c.Close) / 3
	return PivotLevels{
		Pivot: pivot,
		R1:    2*pivot - c.Low,
		R2:    pivot + (c.High - c.Low),
		R3:    c.High + 2*(pivot-c.Low),
		S1:    2*pivot - c.High,
		S2:    pivot - (c.High - c.Low),
		S3:    c.Low - 2*(c.High-pivot),
	}
}

// FibLevels holds Fibonacci retracement levels between a swing high and low.
type FibLevels struct {
	Level0   float64 // swing high
	Level236 float64
	Level382 float64
	Level500 float64
	Level618 float64
	Level786 float64
	Level100 float64 // swing low
}

// FibonacciRetracements computes retracement levels for the given swing.
func FibonacciRetracements(high, low float64) FibLevels {
	diff := high - low
	return FibLevels{
		Level0:   high,
		Level236: high - diff*0.236,
		Level382: high - diff*0.382,
		Level500: high - diff*0.5,
		Level618: high - diff*0.618,
		Level786: high - diff*0.786,
		Level100: low,
	}
}

// SupportResistance holds trailing-window support/resistance levels and the
// buffer zones just inside them.
type SupportResistance struct {
	Support        float64
	Resistance     float64
	SupportZone    float64
	ResistanceZone float64
}

// FindSupportResistance derives support/resistance from the trailing window
// of closes, with zones 10% of the range inside each level.
func FindSupportResistance(closes []float64, window int) SupportResistance {
	tail := closes
	if window > 0 && len(closes) > window {
		tail = closes[len(closes)-window:]
	}
	sr := SupportResistance{Support: math.NaN(), Resistance: math.NaN()}
	if len(tail) == 0 {
		return sr
	}
	sr.Support, sr.Resistance = tail[0], tail[0]
	for _, v := range tail {
		if v < sr.Support {
			sr.Support = v
		}
		if v > sr.Resistance {
			sr.Resistance = v
		}
	}
	span := sr.Resistance - sr.Support
	sr.SupportZone = sr.Support + span*0.1
	sr.ResistanceZone = sr.Resistance - span*0.1
	return sr
}

func typicalPrices(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = (c.High + c.Low + c.Close) / 3
	}
	return out
}

func rangeExtremes(window []models.Candle) (lowMin, highMax float64) {
	lowMin, highMax = window[0].Low, window[0].High
	for _, c := range window {
		if c.Low < lowMin {
			lowMin = c.Low
		}
		if c.High > highMax {
			highMax = c.High
		}
	}
	return lowMin, highMax
}
