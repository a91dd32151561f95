// Package signal converts indicator snapshots into directional scores and
// combines them into a single composite signal. Rules abstain when an
// indicator is undefined or sits in its neutral zone, so sparse evidence is
// never diluted by neutral votes.
package signal

import (
	"fmt"
	"math"

	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/ta"
)

// Thresholds holds the zone boundaries used by the scoring rules.
type Thresholds struct {
	RSIOverbought      float64 `mapstructure:"rsi_overbought"`
	RSIOversold        float64 `mapstructure:"rsi_oversold"`
	StochOversold      float64 `mapstructure:"stoch_oversold"`
	StochOverbought    float64 `mapstructure:"stoch_overbought"`
	MFIOversold        float64 `mapstructure:"mfi_oversold"`
	MFIOverbought      float64 `mapstructure:"mfi_overbought"`
	BBLower            float64 `mapstructure:"bb_lower"`
	BBUpper            float64 `mapstructure:"bb_upper"`
	WilliamsOversold   float64 `mapstructure:"williams_oversold"`
	WilliamsOverbought float64 `mapstructure:"williams_overbought"`
	CCIExtreme         float64 `mapstructure:"cci_extreme"`
	ADXTrending        float64 `mapstructure:"adx_trending"`
	ADXFlat            float64 `mapstructure:"adx_flat"`
	VolumeSpike        float64 `mapstructure:"volume_spike"`
}

// DefaultThresholds returns the standard zone boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOverbought:      70,
		RSIOversold:        30,
		StochOversold:      20,
		StochOverbought:    80,
		MFIOversold:        20,
		MFIOverbought:      80,
		BBLower:            10,
		BBUpper:            90,
		WilliamsOversold:   -80,
		WilliamsOverbought: -20,
		CCIExtreme:         100,
		ADXTrending:        25,
		ADXFlat:            20,
		VolumeSpike:        150,
	}
}

// Score is one module's directional vote plus the regime context the
// aggregator needs for its confidence bonuses.
type Score struct {
	models.ModuleScore
	ADX         float64
	VolumeRatio float64
}

// Input wraps an externally produced module score (ml, sentiment,
// correlation, funding) so it can be aggregated next to internal ones.
func Input(name string, value, weight float64) Score {
	return Score{
		ModuleScore: models.ModuleScore{Name: name, Score: value, Weight: weight, Fired: true},
		ADX:         math.NaN(),
		VolumeRatio: math.NaN(),
	}
}

// TimeframeScorer turns one indicator snapshot into a directional score in
// [-1, 1] with the reasons that produced it.
type TimeframeScorer struct {
	th Thresholds
}

// NewTimeframeScorer builds a scorer with the given zone thresholds.
func NewTimeframeScorer(th Thresholds) *TimeframeScorer {
	return &TimeframeScorer{th: th}
}

// Score evaluates every rule against the snapshot. Rules with no clear
// signal contribute nothing; if none fire the result reports Fired=false
// and a zero score. The volume rule only amplifies an existing mean.
func (s *TimeframeScorer) Score(name string, weight float64, snap ta.Snapshot) Score {
	var votes []float64
	var reasons []string
	vote := func(v float64, format string, args ...any) {
		votes = append(votes, v)
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	// RSI zones. Overbought maps (70..100) onto (0..-1), oversold (0..30)
	// onto (1..0); neutral RSI does not vote.
	if rsi := snap.RSI; !math.IsNaN(rsi) {
		if rsi > s.th.RSIOverbought {
			vote(clampSigned((s.th.RSIOverbought-rsi)/30), "RSI overbought (%.1f)", rsi)
		} else if rsi < s.th.RSIOversold {
			vote(clampSigned((50-rsi)/20), "RSI oversold (%.1f)", rsi)
		}
	}

	// MACD line vs signal line.
	if m := snap.MACD; !math.IsNaN(m.MACD) && !math.IsNaN(m.Signal) {
		if m.MACD > m.Signal {
			vote(0.5, "MACD bullish")
		} else if m.MACD < m.Signal {
			vote(-0.5, "MACD bearish")
		}
	}

	// EMA trend: price on the far side of an aligned fast/slow pair.
	if !math.IsNaN(snap.FastEMA) && !math.IsNaN(snap.SlowEMA) && !math.IsNaN(snap.Close) {
		if snap.FastEMA > snap.SlowEMA && snap.Close > snap.FastEMA {
			vote(0.3, "price above EMA trend")
		} else if snap.FastEMA < snap.SlowEMA && snap.Close < snap.FastEMA {
			vote(-0.3, "price below EMA trend")
		}
	}

	// Stochastic zones and %K/%D cross.
	if st := snap.Stoch; !math.IsNaN(st.K) && !math.IsNaN(st.D) {
		switch {
		case st.K < s.th.StochOversold && st.D < s.th.StochOversold:
			vote(0.4, "Stochastic oversold (%.1f)", st.K)
		case st.K > s.th.StochOverbought && st.D > s.th.StochOverbought:
			vote(-0.4, "Stochastic overbought (%.1f)", st.K)
		case st.K > st.D:
			vote(0.1, "Stochastic %%K above %%D")
		case st.K < st.D:
			vote(-0.1, "Stochastic %%K below %%D")
		}
	}

	// ADX regime. A flat market halves the conviction gathered so far; a
	// trending one adds a directional vote from the DI lines.
	if adx := snap.ADX; !math.IsNaN(adx.ADX) {
		if adx.ADX < s.th.ADXFlat {
			if len(votes) > 0 {
				for i := range votes {
					votes[i] *= 0.5
				}
				reasons = append(reasons, fmt.Sprintf("weak trend (ADX %.1f)", adx.ADX))
			}
		} else if adx.ADX > s.th.ADXTrending && !math.IsNaN(adx.DIPlus) && !math.IsNaN(adx.DIMinus) {
			if adx.DIPlus > adx.DIMinus {
				vote(0.4, "strong uptrend (ADX %.1f)", adx.ADX)
			} else if adx.DIPlus < adx.DIMinus {
				vote(-0.4, "strong downtrend (ADX %.1f)", adx.ADX)
			}
		}
	}

	if mfi := snap.MFI; !math.IsNaN(mfi) {
		if mfi < s.th.MFIOversold {
			vote(0.3, "MFI oversold (%.1f)", mfi)
		} else if mfi > s.th.MFIOverbought {
			vote(-0.3, "MFI overbought (%.1f)", mfi)
		}
	}

	if !math.IsNaN(snap.VWAP) && !math.IsNaN(snap.Close) {
		if snap.Close > snap.VWAP {
			vote(0.1, "price above VWAP")
		} else if snap.Close < snap.VWAP {
			vote(-0.1, "price below VWAP")
		}
	}

	if bb := snap.Bollinger.PercentB; !math.IsNaN(bb) {
		if bb < s.th.BBLower {
			vote(0.3, "price near lower Bollinger band (%.1f%%)", bb)
		} else if bb > s.th.BBUpper {
			vote(-0.3, "price near upper Bollinger band (%.1f%%)", bb)
		}
	}

	if wr := snap.WilliamsR; !math.IsNaN(wr) {
		if wr < s.th.WilliamsOversold {
			vote(0.3, "Williams %%R oversold (%.1f)", wr)
		} else if wr > s.th.WilliamsOverbought {
			vote(-0.3, "Williams %%R overbought (%.1f)", wr)
		}
	}

	if cci := snap.CCI; !math.IsNaN(cci) {
		if cci < -s.th.CCIExtreme {
			vote(0.3, "CCI oversold (%.1f)", cci)
		} else if cci > s.th.CCIExtreme {
			vote(-0.3, "CCI overbought (%.1f)", cci)
		}
	}

	// Volume confirmation amplifies the existing mean; it never creates a
	// direction on its own.
	if ratio := snap.VolumeRatio; !math.IsNaN(ratio) && ratio > s.th.VolumeSpike && len(votes) > 0 {
		if avg := mean(votes); avg != 0 {
			vote(avg*0.2, "high volume confirms (%.0f%%)", ratio)
		}
	}

	out := Score{
		ModuleScore: models.ModuleScore{Name: name, Weight: weight, Reasons: reasons},
		ADX:         snap.ADX.ADX,
		VolumeRatio: snap.VolumeRatio,
	}
	if len(votes) == 0 {
		return out
	}
	out.Fired = true
	out.ModuleScore.Score = clampSigned(mean(votes))
	return out
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clampSigned(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
