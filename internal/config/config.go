package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration, loaded from environment
// variables (a .env file is read by the entrypoint before Load runs)
type Config struct {
	Environment string
	LogLevel    string

	Exchange ExchangeConfig
	Trading  TradingConfig
	Risk     RiskConfig
	Strategy StrategyConfig

	Monitoring struct {
		MetricsPort int
		HealthPort  int
	}

	Notifications struct {
		UseTelegram    bool
		TelegramToken  string
		TelegramChatID string
	}
}

// ExchangeConfig holds API credentials and environment selection
type ExchangeConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
	Category  string // linear, inverse
	QuoteCoin string // settlement coin the balance is reported in
}

// TradingConfig holds symbol and cadence settings for the trading loop
type TradingConfig struct {
	Symbol     string
	Timeframe  string
	Interval   time.Duration
	Leverage   int
	MarginType string // ISOLATED or CROSSED
}

// RiskConfig holds every knob the risk manager reads. It is immutable
// for the lifetime of a run.
type RiskConfig struct {
	// InitialBalance is informational only; the live balance from the
	// exchange always takes precedence.
	InitialBalance   decimal.Decimal
	RiskPerTrade     decimal.Decimal
	MaxOpenPositions int

	UseStopLoss   bool
	StopLossPct   decimal.Decimal
	UseTakeProfit bool
	TakeProfitPct decimal.Decimal

	TrailingStop          bool
	TrailingStopPct       decimal.Decimal
	TrailingTakeProfit    bool
	TrailingTakeProfitPct decimal.Decimal

	AutoCompound            bool
	CompoundReinvestPercent decimal.Decimal
}

// StrategyConfig holds signal-generation parameters
type StrategyConfig struct {
	FastEMA       int
	SlowEMA       int
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
}

// Load builds the configuration from environment variables, falling
// back to conservative defaults when a variable is unset
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Exchange: ExchangeConfig{
			APIKey:    getEnv("BYBIT_API_KEY", ""),
			APISecret: getEnv("BYBIT_API_SECRET", ""),
			Testnet:   getEnvBool("BYBIT_TESTNET", false),
			Demo:      getEnvBool("BYBIT_DEMO", true),
			Category:  getEnv("BYBIT_CATEGORY", "linear"),
			QuoteCoin: getEnv("QUOTE_COIN", "USDT"),
		},

		Trading: TradingConfig{
			Symbol:     getEnv("TRADING_SYMBOL", "ADAUSDT"),
			Timeframe:  getEnv("TIMEFRAME", "15m"),
			Interval:   getEnvDuration("TRADING_INTERVAL", time.Minute),
			Leverage:   getEnvInt("LEVERAGE", 10),
			MarginType: getEnv("MARGIN_TYPE", "ISOLATED"),
		},

		Risk: RiskConfig{
			InitialBalance:   getEnvDecimal("INITIAL_BALANCE", "50.0"),
			RiskPerTrade:     getEnvDecimal("RISK_PER_TRADE", "0.01"),
			MaxOpenPositions: getEnvInt("MAX_OPEN_POSITIONS", 1),

			UseStopLoss:   getEnvBool("USE_STOP_LOSS", true),
			StopLossPct:   getEnvDecimal("STOP_LOSS_PCT", "0.025"),
			UseTakeProfit: getEnvBool("USE_TAKE_PROFIT", true),
			TakeProfitPct: getEnvDecimal("TAKE_PROFIT_PCT", "0.08"),

			TrailingStop:          getEnvBool("TRAILING_STOP", true),
			TrailingStopPct:       getEnvDecimal("TRAILING_STOP_PCT", "0.015"),
			TrailingTakeProfit:    getEnvBool("TRAILING_TAKE_PROFIT", true),
			TrailingTakeProfitPct: getEnvDecimal("TRAILING_TAKE_PROFIT_PCT", "0.04"),

			AutoCompound:            getEnvBool("AUTO_COMPOUND", true),
			CompoundReinvestPercent: getEnvDecimal("COMPOUND_REINVEST_PERCENT", "0.75"),
		},

		Strategy: StrategyConfig{
			FastEMA:       getEnvInt("FAST_EMA", 8),
			SlowEMA:       getEnvInt("SLOW_EMA", 21),
			RSIPeriod:     getEnvInt("RSI_PERIOD", 10),
			RSIOverbought: getEnvFloat("RSI_OVERBOUGHT", 70),
			RSIOversold:   getEnvFloat("RSI_OVERSOLD", 30),
		},
	}

	cfg.Monitoring.MetricsPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.UseTelegram = getEnvBool("USE_TELEGRAM", false)
	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

// Validate catches configurations that would make the risk manager
// refuse every trade
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Trading.Leverage < 1 {
		return fmt.Errorf("leverage must be >= 1, got %d", c.Trading.Leverage)
	}
	if !c.Risk.RiskPerTrade.IsPositive() || c.Risk.RiskPerTrade.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("RISK_PER_TRADE must be in (0, 1], got %s", c.Risk.RiskPerTrade)
	}
	if c.Risk.UseStopLoss && !c.Risk.StopLossPct.IsPositive() {
		return fmt.Errorf("STOP_LOSS_PCT must be positive when USE_STOP_LOSS is enabled")
	}
	if c.Risk.UseTakeProfit && !c.Risk.TakeProfitPct.IsPositive() {
		return fmt.Errorf("TAKE_PROFIT_PCT must be positive when USE_TAKE_PROFIT is enabled")
	}
	if c.Risk.AutoCompound && c.Risk.CompoundReinvestPercent.IsNegative() {
		return fmt.Errorf("COMPOUND_REINVEST_PERCENT must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDecimal(key, defaultVal string) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if parsed, err := decimal.NewFromString(val); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(defaultVal)
}
