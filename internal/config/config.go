// Package config loads the simtrader process configuration: HTTP server
// bind address, matching-engine defaults, per-trader risk limits, and the
// event-bridge publish target.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ServerConfig is the HTTP façade's bind address and request shaping.
type ServerConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	EnableSwagger      bool   `mapstructure:"enable_swagger"`
}

// EngineConfig seeds the matching engine's cross-strategy, fee schedule,
// and the symbols it opens a book for at startup.
type EngineConfig struct {
	Strategy string   `mapstructure:"strategy"` // "FIFO" or "PRO_RATA"
	MakerFee float64  `mapstructure:"maker_fee"`
	TakerFee float64  `mapstructure:"taker_fee"`
	Symbols  []string `mapstructure:"symbols"`
}

// RiskConfig is the default per-trader admission limits as loaded from
// configuration. Nothing in the process applies them to traders: each
// trader's limits come from the risk.Config it was created with.
type RiskConfig struct {
	MaxExposurePerSymbol float64 `mapstructure:"max_exposure_per_symbol"`
	MaxOrderNotional     float64 `mapstructure:"max_order_notional"`
	RiskPerTradeFraction float64 `mapstructure:"risk_per_trade_fraction"`
	DailyLossLimit       float64 `mapstructure:"daily_loss_limit"`
}

// EventBridgeConfig controls external republishing of trade_executed.
type EventBridgeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"` // "nats" or "gomicro"
	NatsURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// EngineVersion is the facade's own semantic version, reported in the
// /healthz response. A "?client_version=" sent to /healthz is checked
// against the API's minimum client version, not against this value.
const EngineVersion = "1.0.0"

// Config is the full process configuration, loaded by Load.
type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Risk        RiskConfig        `mapstructure:"risk"`
	EventBridge EventBridgeConfig `mapstructure:"event_bridge"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_minute", 600)
	v.SetDefault("server.enable_swagger", true)
	v.SetDefault("engine.strategy", "FIFO")
	v.SetDefault("engine.maker_fee", 0.0005)
	v.SetDefault("engine.taker_fee", 0.001)
	v.SetDefault("engine.symbols", []string{})
	v.SetDefault("risk.max_order_notional", 0)
	v.SetDefault("risk.max_exposure_per_symbol", 0)
	v.SetDefault("risk.risk_per_trade_fraction", 0)
	v.SetDefault("risk.daily_loss_limit", 0)
	v.SetDefault("event_bridge.enabled", false)
	v.SetDefault("event_bridge.driver", "nats")
	v.SetDefault("event_bridge.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("event_bridge.subject", "simtrader.trades")
}

// Load reads configuration from (in ascending priority) built-in defaults,
// a config file named "simtrader" on configPaths, and SIMTRADER_-prefixed
// environment variables.
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("simtrader")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("SIMTRADER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds a zap logger from cfg.Environment: the production
// profile for "production", the development profile otherwise. cfg.LogLevel
// is not applied; each profile keeps its own default level.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("building production logger: %w", err)
		}
		return logger, nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building development logger: %w", err)
	}
	return logger, nil
}
