package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/signal"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "oddsight", cfg.Database.DBName)
	assert.Equal(t, "learning", cfg.Engine.GatePolicy)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, cfg.Engine.Symbols)
	assert.Equal(t, "calibration_params.json", cfg.Calibration.ParamsPath)
	assert.Equal(t, 20, cfg.Calibration.MinObservations)
	assert.Equal(t, 14, cfg.Indicators.RSIPeriod)
	assert.InDelta(t, 70.0, cfg.Thresholds.RSIOverbought, 1e-9)

	require.Len(t, cfg.Engine.Timeframes, 3)
	assert.Equal(t, "15m", cfg.Engine.Timeframes[1].Name)
	assert.InDelta(t, signal.Weight15m, cfg.Engine.Timeframes[1].Weight, 1e-9)
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("ENGINE_GATE_POLICY", "volatility")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "volatility", cfg.Engine.GatePolicy)
}

func TestLoad_RejectsUnknownGatePolicy(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("ENGINE_GATE_POLICY", "yolo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate policy")
}

func TestLoad_RejectsLowCandleLimit(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("ENGINE_CANDLE_LIMIT", "5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm-up")
}
