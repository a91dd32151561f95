package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsight/oddsight/internal/utils"
)

// MarketOdds represents the current odds of a binary prediction market.
// YesPrice and NoPrice are decimal odds in (0, 1); YesPrice doubles as the
// market-implied probability of a YES resolution.
type MarketOdds struct {
	YesPrice  float64   `json:"yes_price"`
	NoPrice   float64   `json:"no_price"`
	YesVolume float64   `json:"yes_volume"`
	NoVolume  float64   `json:"no_volume"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ImpliedProbYes returns the market-implied probability of YES.
func (o *MarketOdds) ImpliedProbYes() float64 {
	return o.YesPrice
}

// Validate checks that both prices are inside the open interval (0, 1).
func (o *MarketOdds) Validate() error {
	if o.YesPrice <= 0 || o.YesPrice >= 1 {
		return utils.NewValidationErrorf("yes_price %.4f outside (0, 1)", o.YesPrice)
	}
	if o.NoPrice <= 0 || o.NoPrice >= 1 {
		return utils.NewValidationErrorf("no_price %.4f outside (0, 1)", o.NoPrice)
	}
	return nil
}

// Market represents the metadata of a binary market scraped upstream.
// StrikePrice is nil when the question has no parseable price threshold.
type Market struct {
	ID          string           `json:"id" db:"id"`
	Symbol      string           `json:"symbol" db:"symbol"`
	Question    string           `json:"question" db:"question"`
	StrikePrice *float64         `json:"strike_price,omitempty" db:"strike_price"`
	CloseTime   time.Time        `json:"close_time" db:"close_time"`
	ResolveTime time.Time        `json:"resolve_time" db:"resolve_time"`
	Odds        *MarketOdds      `json:"odds,omitempty"`
	TotalVolume *decimal.Decimal `json:"total_volume,omitempty" db:"total_volume"`
}
