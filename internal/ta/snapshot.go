package ta

import (
	"math"

	"github.com/oddsight/oddsight/internal/models"
)

// Config holds the lookback periods for every indicator in a snapshot.
type Config struct {
	RSIPeriod        int     `mapstructure:"rsi_period"`
	MACDFast         int     `mapstructure:"macd_fast"`
	MACDSlow         int     `mapstructure:"macd_slow"`
	MACDSignal       int     `mapstructure:"macd_signal"`
	BollingerPeriod  int     `mapstructure:"bollinger_period"`
	BollingerStdDev  float64 `mapstructure:"bollinger_std_dev"`
	ATRPeriod        int     `mapstructure:"atr_period"`
	ADXPeriod        int     `mapstructure:"adx_period"`
	StochKPeriod     int     `mapstructure:"stoch_k_period"`
	StochDPeriod     int     `mapstructure:"stoch_d_period"`
	WilliamsPeriod   int     `mapstructure:"williams_period"`
	CCIPeriod        int     `mapstructure:"cci_period"`
	MFIPeriod        int     `mapstructure:"mfi_period"`
	FastEMA          int     `mapstructure:"fast_ema"`
	SlowEMA          int     `mapstructure:"slow_ema"`
	FastSMA          int     `mapstructure:"fast_sma"`
	SlowSMA          int     `mapstructure:"slow_sma"`
	VolumePeriod     int     `mapstructure:"volume_period"`
	VolatilityWindow int     `mapstructure:"volatility_window"`
	SRWindow         int     `mapstructure:"sr_window"`
}

// DefaultConfig returns the standard lookback periods.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BollingerPeriod:  20,
		BollingerStdDev:  2.0,
		ATRPeriod:        14,
		ADXPeriod:        14,
		StochKPeriod:     14,
		StochDPeriod:     3,
		WilliamsPeriod:   14,
		CCIPeriod:        20,
		MFIPeriod:        14,
		FastEMA:          9,
		SlowEMA:          21,
		FastSMA:          20,
		SlowSMA:          50,
		VolumePeriod:     20,
		VolatilityWindow: 30,
		SRWindow:         20,
	}
}

// Snapshot carries the latest value of every indicator for one window.
// Undefined values are NaN; scorers skip them.
type Snapshot struct {
	Close  float64
	Volume float64

	FastEMA float64
	SlowEMA float64
	FastSMA float64
	SlowSMA float64

	RSI         float64
	MACD        MACDSnapshot
	Bollinger   BollingerSnapshot
	ATR         float64
	ADX         ADXSnapshot
	Stoch       StochSnapshot
	WilliamsR   float64
	CCI         float64
	MFI         float64
	VWAP        float64
	VolumeRatio float64
	Volatility  float64

	Pivots     PivotLevels
	Fib        FibLevels
	SupportRes SupportResistance
}

// MACDSnapshot is the latest MACD line, signal line and histogram.
type MACDSnapshot struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// BollingerSnapshot is the latest band set plus %B.
type BollingerSnapshot struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64
}

// ADXSnapshot is the latest trend-strength reading.
type ADXSnapshot struct {
	ADX     float64
	DIPlus  float64
	DIMinus float64
}

// StochSnapshot is the latest stochastic reading.
type StochSnapshot struct {
	K float64
	D float64
}

// ComputeSnapshot computes every configured indicator over the series and
// returns the latest values. Indicator families are computed independently
// and a panic inside one leaves only that family NaN, so a single broken
// input column cannot blank the whole snapshot.
func ComputeSnapshot(series *models.Series, cfg Config) Snapshot {
	snap := emptySnapshot()
	if series == nil || series.Len() == 0 {
		return snap
	}
	candles := series.Candles
	closes := series.Closes()
	volumes := series.Volumes()
	lastCandle := candles[len(candles)-1]

	snap.Close = lastCandle.Close
	snap.Volume = lastCandle.Volume

	compute(func() {
		snap.FastEMA = last(EMA(closes, cfg.FastEMA))
		snap.SlowEMA = last(EMA(closes, cfg.SlowEMA))
		snap.FastSMA = last(SMA(closes, cfg.FastSMA))
		snap.SlowSMA = last(SMA(closes, cfg.SlowSMA))
	})
	compute(func() { snap.RSI = last(RSI(closes, cfg.RSIPeriod)) })
	compute(func() {
		m := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
		snap.MACD = MACDSnapshot{MACD: last(m.MACD), Signal: last(m.Signal), Histogram: last(m.Histogram)}
	})
	compute(func() {
		b := Bollinger(closes, cfg.BollingerPeriod, cfg.BollingerStdDev)
		snap.Bollinger = BollingerSnapshot{
			Upper:    last(b.Upper),
			Middle:   last(b.Middle),
			Lower:    last(b.Lower),
			PercentB: b.PercentB,
		}
	})
	compute(func() { snap.ATR = last(ATR(candles, cfg.ATRPeriod)) })
	compute(func() {
		a := ADX(candles, cfg.ADXPeriod)
		snap.ADX = ADXSnapshot{ADX: last(a.ADX), DIPlus: last(a.DIPlus), DIMinus: last(a.DIMinus)}
	})
	compute(func() {
		s := Stochastic(candles, cfg.StochKPeriod, cfg.StochDPeriod)
		snap.Stoch = StochSnapshot{K: last(s.K), D: last(s.D)}
	})
	compute(func() { snap.WilliamsR = last(WilliamsR(candles, cfg.WilliamsPeriod)) })
	compute(func() { snap.CCI = last(CCI(candles, cfg.CCIPeriod)) })
	compute(func() { snap.MFI = last(MFI(candles, cfg.MFIPeriod)) })
	compute(func() { snap.VWAP = last(VWAP(candles)) })
	compute(func() { snap.VolumeRatio = VolumeRatio(volumes, cfg.VolumePeriod) })
	compute(func() { snap.Volatility = Volatility(closes, cfg.VolatilityWindow) })
	compute(func() { snap.Pivots = PivotPoints(lastCandle) })
	compute(func() {
		snap.SupportRes = FindSupportResistance(closes, cfg.SRWindow)
		snap.Fib = FibonacciRetracements(snap.SupportRes.Resistance, snap.SupportRes.Support)
	})
	return snap
}

// compute runs one indicator family, swallowing a panic so the rest of the
// snapshot still fills in.
func compute(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func emptySnapshot() Snapshot {
	nan := math.NaN()
	return Snapshot{
		Close:       nan,
		Volume:      nan,
		FastEMA:     nan,
		SlowEMA:     nan,
		FastSMA:     nan,
		SlowSMA:     nan,
		RSI:         nan,
		MACD:        MACDSnapshot{MACD: nan, Signal: nan, Histogram: nan},
		Bollinger:   BollingerSnapshot{Upper: nan, Middle: nan, Lower: nan, PercentB: nan},
		ATR:         nan,
		ADX:         ADXSnapshot{ADX: nan, DIPlus: nan, DIMinus: nan},
		Stoch:       StochSnapshot{K: nan, D: nan},
		WilliamsR:   nan,
		CCI:         nan,
		MFI:         nan,
		VWAP:        nan,
		VolumeRatio: nan,
		Volatility:  nan,
		Pivots:      PivotLevels{Pivot: nan, R1: nan, R2: nan, R3: nan, S1: nan, S2: nan, S3: nan},
		Fib:         FibLevels{Level0: nan, Level236: nan, Level382: nan, Level500: nan, Level618: nan, Level786: nan, Level100: nan},
		SupportRes:  SupportResistance{Support: nan, Resistance: nan, SupportZone: nan, ResistanceZone: nan},
	}
}
