package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Filings   FilingsConfig   `yaml:"filings" mapstructure:"filings"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gateway   GatewayConfig   `yaml:"gateway" mapstructure:"gateway"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FilingsConfig configures the filings index and render API client.
type FilingsConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	QueryBaseURL   string `yaml:"query_base_url" mapstructure:"query_base_url"`
	RenderBaseURL  string `yaml:"render_base_url" mapstructure:"render_base_url"`
	VerifyTLS      bool   `yaml:"verify_tls" mapstructure:"verify_tls"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FormDelayMs    int    `yaml:"form_delay_ms" mapstructure:"form_delay_ms"`
	RequestsPerSec int    `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GatewayConfig configures the artifact persistence backend.
type GatewayConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	Root        string `yaml:"root" mapstructure:"root"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig configures multi-ticker batch runs.
type BatchConfig struct {
	MaxConcurrentTickers int `yaml:"max_concurrent_tickers" mapstructure:"max_concurrent_tickers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LLMTimeout returns the bound applied to a single LLM call.
func (c AnthropicConfig) LLMTimeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// FormDelay returns the minimum delay between render calls for different
// form types of the same ticker.
func (c FilingsConfig) FormDelay() time.Duration {
	if c.FormDelayMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.FormDelayMs) * time.Millisecond
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAPTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("filings.query_base_url", "https://api.sec-api.io")
	v.SetDefault("filings.render_base_url", "https://api.sec-api.io/filing-reader")
	v.SetDefault("filings.verify_tls", true)
	v.SetDefault("filings.timeout_secs", 60)
	v.SetDefault("filings.form_delay_ms", 500)
	v.SetDefault("filings.requests_per_sec", 5)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("gateway.backend", "fs")
	v.SetDefault("gateway.root", "data/captables")
	v.SetDefault("gateway.sqlite_path", "data/captables.db")
	v.SetDefault("batch.max_concurrent_tickers", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
