package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/oddsight/oddsight/internal/signal"
	"github.com/oddsight/oddsight/internal/ta"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Market      MarketConfig      `mapstructure:"market"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Indicators  ta.Config         `mapstructure:"indicators"`
	Thresholds  signal.Thresholds `mapstructure:"thresholds"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	DatabaseURL  string `mapstructure:"database_url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	OddsTTL  string `mapstructure:"odds_ttl"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// MarketConfig points at the exchange klines endpoint feeding the engine.
type MarketConfig struct {
	KlinesURL string `mapstructure:"klines_url"`
	Timeout   string `mapstructure:"timeout"`
}

// TimeframeConfig is one timeframe window in the aggregation.
type TimeframeConfig struct {
	Name   string  `mapstructure:"name"`
	Weight float64 `mapstructure:"weight"`
}

type EngineConfig struct {
	Symbols []string `mapstructure:"symbols"`
	// EvaluationInterval is how often the evaluation loop runs per symbol.
	EvaluationInterval string            `mapstructure:"evaluation_interval"`
	Timeframes         []TimeframeConfig `mapstructure:"timeframes"`
	CandleLimit        int               `mapstructure:"candle_limit"`
	// GatePolicy selects "learning" (default) or "volatility".
	GatePolicy           string  `mapstructure:"gate_policy"`
	VolatilityMultiplier float64 `mapstructure:"volatility_multiplier"`
}

type CalibrationConfig struct {
	ParamsPath      string `mapstructure:"params_path"`
	MinObservations int    `mapstructure:"min_observations"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}
	if err := viper.BindEnv("database.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Engine.Timeframes) == 0 {
		return fmt.Errorf("engine.timeframes must not be empty")
	}
	totalWeight := 0.0
	for _, tf := range c.Engine.Timeframes {
		if tf.Weight <= 0 {
			return fmt.Errorf("timeframe %q has non-positive weight %v", tf.Name, tf.Weight)
		}
		totalWeight += tf.Weight
	}
	if totalWeight <= 0 {
		return fmt.Errorf("timeframe weights must sum to a positive value")
	}
	switch c.Engine.GatePolicy {
	case "learning", "volatility":
	default:
		return fmt.Errorf("unknown gate policy %q", c.Engine.GatePolicy)
	}
	if c.Engine.CandleLimit < ta.MinWarmup {
		return fmt.Errorf("engine.candle_limit %d is below the %d candle warm-up floor",
			c.Engine.CandleLimit, ta.MinWarmup)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "oddsight")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 10)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.odds_ttl", "90s")

	viper.SetDefault("market.klines_url", "https://api.binance.com/api/v3/klines")
	viper.SetDefault("market.timeout", "10s")

	viper.SetDefault("engine.symbols", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	viper.SetDefault("engine.evaluation_interval", "5m")
	viper.SetDefault("engine.candle_limit", 100)
	viper.SetDefault("engine.gate_policy", "learning")
	viper.SetDefault("engine.volatility_multiplier", 1.0)
	viper.SetDefault("engine.timeframes", []map[string]any{
		{"name": "5m", "weight": signal.Weight5m},
		{"name": "15m", "weight": signal.Weight15m},
		{"name": "1h", "weight": signal.Weight1h},
	})

	viper.SetDefault("calibration.params_path", "calibration_params.json")
	viper.SetDefault("calibration.min_observations", 20)

	def := ta.DefaultConfig()
	viper.SetDefault("indicators.rsi_period", def.RSIPeriod)
	viper.SetDefault("indicators.macd_fast", def.MACDFast)
	viper.SetDefault("indicators.macd_slow", def.MACDSlow)
	viper.SetDefault("indicators.macd_signal", def.MACDSignal)
	viper.SetDefault("indicators.bollinger_period", def.BollingerPeriod)
	viper.SetDefault("indicators.bollinger_std_dev", def.BollingerStdDev)
	viper.SetDefault("indicators.atr_period", def.ATRPeriod)
	viper.SetDefault("indicators.adx_period", def.ADXPeriod)
	viper.SetDefault("indicators.stoch_k_period", def.StochKPeriod)
	viper.SetDefault("indicators.stoch_d_period", def.StochDPeriod)
	viper.SetDefault("indicators.williams_period", def.WilliamsPeriod)
	viper.SetDefault("indicators.cci_period", def.CCIPeriod)
	viper.SetDefault("indicators.mfi_period", def.MFIPeriod)
	viper.SetDefault("indicators.fast_ema", def.FastEMA)
	viper.SetDefault("indicators.slow_ema", def.SlowEMA)
	viper.SetDefault("indicators.fast_sma", def.FastSMA)
	viper.SetDefault("indicators.slow_sma", def.SlowSMA)
	viper.SetDefault("indicators.volume_period", def.VolumePeriod)
	viper.SetDefault("indicators.volatility_window", def.VolatilityWindow)
	viper.SetDefault("indicators.sr_window", def.SRWindow)

	th := signal.DefaultThresholds()
	viper.SetDefault("thresholds.rsi_overbought", th.RSIOverbought)
	viper.SetDefault("thresholds.rsi_oversold", th.RSIOversold)
	viper.SetDefault("thresholds.stoch_oversold", th.StochOversold)
	viper.SetDefault("thresholds.stoch_overbought", th.StochOverbought)
	viper.SetDefault("thresholds.mfi_oversold", th.MFIOversold)
	viper.SetDefault("thresholds.mfi_overbought", th.MFIOverbought)
	viper.SetDefault("thresholds.bb_lower", th.BBLower)
	viper.SetDefault("thresholds.bb_upper", th.BBUpper)
	viper.SetDefault("thresholds.williams_oversold", th.WilliamsOversold)
	viper.SetDefault("thresholds.williams_overbought", th.WilliamsOverbought)
	viper.SetDefault("thresholds.cci_extreme", th.CCIExtreme)
	viper.SetDefault("thresholds.adx_trending", th.ADXTrending)
	viper.SetDefault("thresholds.adx_flat", th.ADXFlat)
	viper.SetDefault("thresholds.volume_spike", th.VolumeSpike)
}
