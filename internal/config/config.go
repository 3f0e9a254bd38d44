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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Matcher   MatcherConfig   `yaml:"matcher" mapstructure:"matcher"`
	Watchlist WatchlistConfig `yaml:"watchlist" mapstructure:"watchlist"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ComponentConfig configures one scoring component's weight and decay.
type ComponentConfig struct {
	Weight       float64 `yaml:"weight" mapstructure:"weight"`
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	HalfLifeDays float64 `yaml:"half_life_days" mapstructure:"half_life_days"`
}

// ScoringConfig configures the composite scoring engine. Components is
// keyed by component name; when empty the engine falls back to the
// built-in defaults.
type ScoringConfig struct {
	Components   map[string]ComponentConfig `yaml:"components" mapstructure:"components"`
	MinScore     float64                    `yaml:"min_score" mapstructure:"min_score"`
	TopAcquirers int                        `yaml:"top_acquirers" mapstructure:"top_acquirers"`
}

// MatcherConfig configures acquirer matching.
type MatcherConfig struct {
	MinScore        float64 `yaml:"min_score" mapstructure:"min_score"`
	TopN            int     `yaml:"top_n" mapstructure:"top_n"`
	CliffYearsAhead int     `yaml:"cliff_years_ahead" mapstructure:"cliff_years_ahead"`
	HistoryYears    int     `yaml:"history_years" mapstructure:"history_years"`
	CandidatePool   int     `yaml:"candidate_pool" mapstructure:"candidate_pool"`
}

// WatchlistConfig configures the watchlist state machine.
// AddThreshold must exceed RemoveThreshold; the gap is the hysteresis
// band that keeps borderline companies from flapping.
type WatchlistConfig struct {
	AddThreshold    float64 `yaml:"add_threshold" mapstructure:"add_threshold"`
	RemoveThreshold float64 `yaml:"remove_threshold" mapstructure:"remove_threshold"`
	AlertDelta      float64 `yaml:"alert_delta" mapstructure:"alert_delta"`
	AutoAdd         bool    `yaml:"auto_add" mapstructure:"auto_add"`
	AutoRemove      bool    `yaml:"auto_remove" mapstructure:"auto_remove"`
}

// Validate checks the watchlist threshold invariants.
func (w WatchlistConfig) Validate() error {
	var errs []string
	if w.AddThreshold < 0 || w.AddThreshold > 100 {
		errs = append(errs, "add_threshold must be between 0 and 100")
	}
	if w.RemoveThreshold < 0 || w.RemoveThreshold > 100 {
		errs = append(errs, "remove_threshold must be between 0 and 100")
	}
	if w.AddThreshold <= w.RemoveThreshold {
		errs = append(errs, "add_threshold must be greater than remove_threshold")
	}
	if w.AlertDelta < 0 {
		errs = append(errs, "alert_delta must be >= 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: watchlist validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	WebhookURL    string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	RatePerMinute float64 `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// BatchConfig configures batch scoring.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
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

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIOMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_companies", 5)
	v.SetDefault("scoring.min_score", 0)
	v.SetDefault("scoring.top_acquirers", 5)
	v.SetDefault("matcher.min_score", 40)
	v.SetDefault("matcher.top_n", 10)
	v.SetDefault("matcher.cliff_years_ahead", 5)
	v.SetDefault("matcher.history_years", 7)
	v.SetDefault("matcher.candidate_pool", 50)
	v.SetDefault("watchlist.add_threshold", 70)
	v.SetDefault("watchlist.remove_threshold", 50)
	v.SetDefault("watchlist.alert_delta", 10)
	v.SetDefault("watchlist.auto_add", true)
	v.SetDefault("watchlist.auto_remove", true)
	v.SetDefault("notify.rate_per_minute", 30)
	v.SetDefault("notify.burst", 5)

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

// Validate checks cross-cutting invariants that must hold at startup.
func (c *Config) Validate() error {
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	if err := c.Watchlist.Validate(); err != nil {
		return err
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
