package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/config"
	"github.com/oddsight/oddsight/internal/models"
)

// Client fetches OHLCV candles from a Binance-compatible klines endpoint.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewClient creates a market data client from the market configuration. A
// zero or unparsable timeout falls back to 30 seconds.
func NewClient(cfg config.MarketConfig, logger *logrus.Logger) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.KlinesURL, "/"),
		logger:     logger,
	}
}

// Klines fetches up to limit candles for the symbol at the given interval
// (exchange notation, e.g. "5m", "15m", "1h"). Candles are returned in
// chronological order and validated before use.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) (*models.Series, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create klines request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines for %s %s: %w", symbol, interval, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing klines response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read klines response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("klines endpoint error (%d): %s", resp.StatusCode, string(body))
	}

	// Binance kline rows are mixed-type arrays:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal klines response: %w", err)
	}

	series := &models.Series{
		Symbol:  symbol,
		Candles: make([]models.Candle, 0, len(rows)),
	}
	for i, row := range rows {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline row %d: %w", i, err)
		}
		series.Candles = append(series.Candles, candle)
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("klines for %s %s failed validation: %w", symbol, interval, err)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"candles":  series.Len(),
	}).Debug("Fetched klines")
	return series, nil
}

func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	var openTimeMs int64
	if err := json.Unmarshal(row[0], &openTimeMs); err != nil {
		return models.Candle{}, fmt.Errorf("invalid open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		v, err := parseNumeric(row[i])
		if err != nil {
			return models.Candle{}, err
		}
		fields[i-1] = v
	}

	return models.Candle{
		Time:   time.UnixMilli(openTimeMs).UTC(),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

// parseNumeric accepts a JSON number or a quoted decimal string. Binance
// serializes prices as strings to avoid float truncation.
func parseNumeric(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("invalid numeric field %s: %w", string(raw), err)
	}
	return v, nil
}
