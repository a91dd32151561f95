package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/config"
	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/utils"
)

// CandleSource fetches OHLCV windows per symbol and timeframe.
type CandleSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) (*models.Series, error)
}

// MarketSource looks up the active market (odds plus strike) for a symbol.
// A miss returns ok=false and the evaluation proceeds on even money with no
// strike.
type MarketSource interface {
	Get(ctx context.Context, symbol string) (*models.Market, bool)
}

// DecisionSink persists finished decisions.
type DecisionSink interface {
	Insert(ctx context.Context, d *models.Decision) error
}

// Notifier pushes alerts for bettable decisions.
type Notifier interface {
	NotifyDecision(ctx context.Context, d *models.Decision) error
}

// Runner drives the evaluation loop: every interval it evaluates all
// configured symbols concurrently, persists the decisions and alerts on the
// bettable ones.
type Runner struct {
	evaluator *Evaluator
	candles   CandleSource
	markets   MarketSource
	sink      DecisionSink
	notifier  Notifier
	cfg       config.EngineConfig
	logger    *logrus.Logger
}

// NewRunner wires the runner to its collaborators. The notifier may be nil.
func NewRunner(
	evaluator *Evaluator,
	candles CandleSource,
	markets MarketSource,
	sink DecisionSink,
	notifier Notifier,
	cfg config.EngineConfig,
	logger *logrus.Logger,
) *Runner {
	return &Runner{
		evaluator: evaluator,
		candles:   candles,
		markets:   markets,
		sink:      sink,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, evaluating all symbols once immediately and then on every
// tick, until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	interval, err := time.ParseDuration(r.cfg.EvaluationInterval)
	if err != nil || interval <= 0 {
		interval = 5 * time.Minute
	}

	r.logger.WithFields(logrus.Fields{
		"symbols":  len(r.cfg.Symbols),
		"interval": interval.String(),
	}).Info("Starting evaluation loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Evaluation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	var wg sync.WaitGroup
	for _, symbol := range r.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			r.EvaluateSymbol(ctx, symbol)
		}(symbol)
	}
	wg.Wait()
}

// EvaluateSymbol runs one full evaluation for a symbol: fetch all timeframe
// windows, look up odds, evaluate, persist, and alert when bettable.
func (r *Runner) EvaluateSymbol(ctx context.Context, symbol string) {
	log := r.logger.WithField("symbol", symbol)

	windows := make([]TimeframeWindow, 0, len(r.cfg.Timeframes))
	for _, tf := range r.cfg.Timeframes {
		series, err := r.candles.Klines(ctx, symbol, tf.Name, r.cfg.CandleLimit)
		if err != nil {
			log.WithError(err).WithField("timeframe", tf.Name).Warn("Failed to fetch candles, skipping symbol")
			return
		}
		windows = append(windows, TimeframeWindow{Name: tf.Name, Weight: tf.Weight, Series: series})
	}

	in := Input{Symbol: symbol, Windows: windows, MarketID: symbol}
	if market, ok := r.markets.Get(ctx, symbol); ok {
		if market.ID != "" {
			in.MarketID = market.ID
		}
		in.Odds = market.Odds
		in.Strike = market.StrikePrice
	}

	decision, err := r.evaluator.Evaluate(in)
	if err != nil {
		if utils.IsInsufficientData(err) {
			log.WithError(err).Debug("Not enough history yet, skipping cycle")
		} else {
			log.WithError(err).Error("Evaluation failed")
		}
		return
	}

	if err := r.sink.Insert(ctx, decision); err != nil {
		log.WithError(err).Error("Failed to persist decision")
		return
	}

	if decision.IsBettable && r.notifier != nil {
		if err := r.notifier.NotifyDecision(ctx, decision); err != nil {
			log.WithError(err).Warn("Failed to send decision alert")
		}
	}
}
