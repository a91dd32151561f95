package models

import (
	"time"

	"github.com/oddsight/oddsight/internal/utils"
)

// Candle represents a single OHLCV candle.
type Candle struct {
	Time   time.Time `json:"time" db:"time"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume float64   `json:"volume" db:"volume"`
}

// Series is an ordered OHLCV window. Candles are expected in chronological
// order with strictly increasing timestamps; Validate enforces this.
type Series struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

// Len returns the number of candles in the series.
func (s *Series) Len() int {
	return len(s.Candles)
}

// Last returns the most recent candle. The series must be non-empty.
func (s *Series) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// Tail returns the trailing n candles (or the whole series if shorter).
func (s *Series) Tail(n int) []Candle {
	if n >= len(s.Candles) {
		return s.Candles
	}
	return s.Candles[len(s.Candles)-n:]
}

// Closes returns the close prices in chronological order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volumes in chronological order.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// Validate checks the series invariants: strictly increasing timestamps,
// high >= max(open, close) and low <= min(open, close) for every candle.
func (s *Series) Validate() error {
	for i, c := range s.Candles {
		if i > 0 && !c.Time.After(s.Candles[i-1].Time) {
			return utils.NewValidationErrorf("candle %d: timestamp %s not after previous %s",
				i, c.Time.Format(time.RFC3339), s.Candles[i-1].Time.Format(time.RFC3339))
		}
		if c.High < c.Open || c.High < c.Close {
			return utils.NewValidationErrorf("candle %d: high %.8f below open/close", i, c.High)
		}
		if c.Low > c.Open || c.Low > c.Close {
			return utils.NewValidationErrorf("candle %d: low %.8f above open/close", i, c.Low)
		}
	}
	return nil
}
