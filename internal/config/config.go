// Package config loads application configuration from file and
// environment and builds the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ModelConfig configures the valuation model defaults.
type ModelConfig struct {
	ProjectionYears    int     `yaml:"projection_years" mapstructure:"projection_years"`
	TerminalGrowthRate float64 `yaml:"terminal_growth_rate" mapstructure:"terminal_growth_rate"`
	RiskFreeRate       float64 `yaml:"risk_free_rate" mapstructure:"risk_free_rate"`
	MarketReturn       float64 `yaml:"market_return" mapstructure:"market_return"`
}

// SourcesConfig configures the data-source collaborators.
type SourcesConfig struct {
	UserAgent      string      `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int         `yaml:"max_retries" mapstructure:"max_retries"`
	Yahoo          YahooConfig `yaml:"yahoo" mapstructure:"yahoo"`
	EDGAR          EDGARConfig `yaml:"edgar" mapstructure:"edgar"`
	ScrapeEnabled  bool        `yaml:"scrape_enabled" mapstructure:"scrape_enabled"`
	ScrapeDelaySec float64     `yaml:"scrape_delay_secs" mapstructure:"scrape_delay_secs"`
}

// YahooConfig configures the market-data API source.
type YahooConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	QuoteURL string `yaml:"quote_url" mapstructure:"quote_url"`
	ChartURL string `yaml:"chart_url" mapstructure:"chart_url"`
}

// EDGARConfig configures the regulatory-filing source.
type EDGARConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	DataURL     string `yaml:"data_url" mapstructure:"data_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	DownloadDir string `yaml:"download_dir" mapstructure:"download_dir"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the valuation API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FAIRVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("model.projection_years", 5)
	v.SetDefault("model.terminal_growth_rate", 0.025)
	v.SetDefault("model.risk_free_rate", 0.045)
	v.SetDefault("model.market_return", 0.10)
	v.SetDefault("sources.user_agent", "fairvalue-cli/1.0")
	v.SetDefault("sources.timeout_secs", 15)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.yahoo.enabled", true)
	v.SetDefault("sources.yahoo.quote_url", "https://query2.finance.yahoo.com")
	v.SetDefault("sources.yahoo.chart_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.edgar.enabled", true)
	v.SetDefault("sources.edgar.base_url", "https://www.sec.gov")
	v.SetDefault("sources.edgar.data_url", "https://data.sec.gov")
	v.SetDefault("sources.edgar.user_agent", "Sells Advisors blake@sellsadvisors.com")
	v.SetDefault("sources.edgar.download_dir", "/tmp/fairvalue/filings")
	v.SetDefault("sources.scrape_enabled", true)
	v.SetDefault("sources.scrape_delay_secs", 1.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fairvalue.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks structural configuration invariants.
func (c *Config) Validate() error {
	if c.Model.ProjectionYears <= 0 {
		return eris.New("config: model.projection_years must be positive")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server port %d", c.Server.Port)
	}
	return nil
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
