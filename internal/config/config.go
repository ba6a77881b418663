// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	WS        WSConfig        `mapstructure:"ws"`
	Exchanges ExchangesConfig `mapstructure:"exchanges"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// WSConfig holds the dial defaults shared by every exchange connection,
// overridable per exchange in ExchangeConfig.
type WSConfig struct {
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// ExchangesConfig holds per-exchange settings keyed by exchange id.
type ExchangesConfig struct {
	Binance ExchangeConfig `mapstructure:"binance"`
	Okex    ExchangeConfig `mapstructure:"okex"`
	Bitmex  ExchangeConfig `mapstructure:"bitmex"`
	Huobi   ExchangeConfig `mapstructure:"huobi"`
	Deribit ExchangeConfig `mapstructure:"deribit"`
}

// ExchangeConfig holds one exchange's connection credentials and
// symbol list. Passphrase is only meaningful for Okex.
type ExchangeConfig struct {
	APIKey     string   `mapstructure:"api_key"`
	Secret     string   `mapstructure:"secret"`
	Passphrase string   `mapstructure:"passphrase"`
	Symbols    []string `mapstructure:"symbols"`
	Testnet    bool     `mapstructure:"testnet"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("UXFEED")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "UXFEED_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "UXFEED_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "UXFEED_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("exchanges.binance.api_key", "UXFEED_BINANCE_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("exchanges.binance.secret", "UXFEED_BINANCE_SECRET", "BINANCE_SECRET")
	v.BindEnv("exchanges.binance.symbols", "UXFEED_BINANCE_SYMBOLS", "BINANCE_SYMBOLS")

	v.BindEnv("exchanges.okex.api_key", "UXFEED_OKEX_API_KEY", "OKEX_API_KEY")
	v.BindEnv("exchanges.okex.secret", "UXFEED_OKEX_SECRET", "OKEX_SECRET")
	v.BindEnv("exchanges.okex.passphrase", "UXFEED_OKEX_PASSPHRASE", "OKEX_PASSPHRASE")

	v.BindEnv("exchanges.huobi.api_key", "UXFEED_HUOBI_API_KEY", "HUOBI_API_KEY")
	v.BindEnv("exchanges.huobi.secret", "UXFEED_HUOBI_SECRET", "HUOBI_SECRET")

	v.BindEnv("telemetry.enabled", "UXFEED_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "UXFEED_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "UXFEED_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "uxfeed")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ws.max_reconnects", 0) // infinite
	v.SetDefault("ws.initial_backoff", "1s")
	v.SetDefault("ws.max_backoff", "30s")
	v.SetDefault("ws.ping_interval", "20s")
	v.SetDefault("ws.read_timeout", "60s")
	v.SetDefault("ws.write_timeout", "10s")

	v.SetDefault("exchanges.binance.symbols", []string{"BTC/USDT"})
	v.SetDefault("exchanges.okex.symbols", []string{"BTC/USDT"})
	v.SetDefault("exchanges.bitmex.symbols", []string{"BTC/USD"})
	v.SetDefault("exchanges.huobi.symbols", []string{"BTC/USDT"})
	v.SetDefault("exchanges.deribit.symbols", []string{"BTC/USD"})

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "uxfeed")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.WS.MaxBackoff < c.WS.InitialBackoff {
		return fmt.Errorf("ws.max_backoff must be >= ws.initial_backoff")
	}
	return nil
}
