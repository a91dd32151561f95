// Package cache holds the Redis-backed market cache. Market state (odds plus
// the strike parsed from the question) is written by the market-data side and
// read as an immutable snapshot once per evaluation cycle.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/models"
)

// MarketCacheStats tracks cache performance counters.
type MarketCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// MarketCache caches the active Market per symbol with a TTL, so a scraper
// outage degrades evaluations to no-odds mode instead of feeding stale
// prices.
type MarketCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *MarketCacheStats
	prefix string
	logger *logrus.Logger
}

// NewMarketCache creates a market cache with the given TTL.
func NewMarketCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *MarketCache {
	return &MarketCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &MarketCacheStats{},
		prefix: "market_cache:",
		logger: logger,
	}
}

// Get returns the cached active market for a symbol, or (nil, false) on a
// miss. An expired key is a miss; the evaluator then treats the market as
// even money with no strike rather than trusting out-of-date state.
func (c *MarketCache) Get(ctx context.Context, symbol string) (*models.Market, bool) {
	data, err := c.redis.Get(ctx, c.prefix+symbol).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Redis error reading market")
		c.miss()
		return nil, false
	}

	var market models.Market
	if err := json.Unmarshal([]byte(data), &market); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Corrupt cached market entry")
		c.miss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return &market, true
}

// Set stores the active market for its symbol. Markets carrying invalid odds
// are rejected so the cache can never serve prices outside (0,1).
func (c *MarketCache) Set(ctx context.Context, market models.Market) error {
	if market.Symbol == "" {
		return fmt.Errorf("refusing to cache market %s without a symbol", market.ID)
	}
	if market.Odds != nil {
		if err := market.Odds.Validate(); err != nil {
			return fmt.Errorf("refusing to cache invalid odds for %s: %w", market.Symbol, err)
		}
		if market.Odds.FetchedAt.IsZero() {
			market.Odds.FetchedAt = time.Now().UTC()
		}
	}

	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("failed to serialize market for %s: %w", market.Symbol, err)
	}
	if err := c.redis.Set(ctx, c.prefix+market.Symbol, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache market for %s: %w", market.Symbol, err)
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
	return nil
}

// Invalidate drops one symbol's market, typically after it resolves.
func (c *MarketCache) Invalidate(ctx context.Context, symbol string) error {
	return c.redis.Del(ctx, c.prefix+symbol).Err()
}

// Stats returns a copy of the counters.
func (c *MarketCache) Stats() MarketCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return MarketCacheStats{Hits: c.stats.Hits, Misses: c.stats.Misses, Sets: c.stats.Sets}
}

func (c *MarketCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
