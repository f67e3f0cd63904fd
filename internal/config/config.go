package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hdb-resale/resale-cli/internal/address"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	Predict PredictConfig `yaml:"predict" mapstructure:"predict"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite database used for runs, checkpoints and the geocode cache.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GeocodeConfig holds provider credentials and geocoding behavior.
type GeocodeConfig struct {
	MapsCoKey    string            `yaml:"mapsco_api_key" mapstructure:"mapsco_api_key"`
	MapsCoURL    string            `yaml:"mapsco_url" mapstructure:"mapsco_url"`
	RadarKey     string            `yaml:"radar_api_key" mapstructure:"radar_api_key"`
	RadarURL     string            `yaml:"radar_url" mapstructure:"radar_url"`
	OneMapToken  string            `yaml:"onemap_token" mapstructure:"onemap_token"`
	OneMapURL    string            `yaml:"onemap_url" mapstructure:"onemap_url"`
	UseOneMap    bool              `yaml:"use_onemap" mapstructure:"use_onemap"`
	RateLimitRPS float64           `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	Concurrency  int               `yaml:"concurrency" mapstructure:"concurrency"`
	SaveEvery    int               `yaml:"save_every" mapstructure:"save_every"`
	CacheEnabled bool              `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLDays int               `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	Retry        RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Bounds       address.Bounds    `yaml:"bounds" mapstructure:"bounds"`
	Acronyms     map[string]string `yaml:"acronyms" mapstructure:"acronyms"`
}

// RetryConfig configures retries of transient provider failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// MatchConfig configures the nearest-amenity matcher.
type MatchConfig struct {
	CheckpointEvery int  `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	Concurrency     int  `yaml:"concurrency" mapstructure:"concurrency"`
	SkipInvalid     bool `yaml:"skip_invalid" mapstructure:"skip_invalid"`
}

// PredictConfig locates the pretrained price model.
type PredictConfig struct {
	ModelPath string `yaml:"model_path" mapstructure:"model_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads .env, config.yaml and RESALE_* environment variables, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RESALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.path", "resale.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("geocode.mapsco_api_key", "")
	v.SetDefault("geocode.radar_api_key", "")
	v.SetDefault("geocode.onemap_token", "")
	v.SetDefault("geocode.mapsco_url", "https://geocode.maps.co/search")
	v.SetDefault("geocode.radar_url", "https://api.radar.io/v1/geocode/forward")
	v.SetDefault("geocode.onemap_url", "https://www.onemap.gov.sg/api/common/elastic/search")
	v.SetDefault("geocode.use_onemap", true)
	v.SetDefault("geocode.rate_limit_rps", 0.9)
	v.SetDefault("geocode.concurrency", 1)
	v.SetDefault("geocode.save_every", 50)
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("geocode.cache_ttl_days", 0)
	v.SetDefault("geocode.retry.max_attempts", 3)
	v.SetDefault("geocode.retry.initial_backoff_ms", 1100)
	v.SetDefault("geocode.retry.max_backoff_ms", 20000)
	v.SetDefault("geocode.bounds.min_lat", address.SingaporeBounds.MinLat)
	v.SetDefault("geocode.bounds.max_lat", address.SingaporeBounds.MaxLat)
	v.SetDefault("geocode.bounds.min_lon", address.SingaporeBounds.MinLon)
	v.SetDefault("geocode.bounds.max_lon", address.SingaporeBounds.MaxLon)
	v.SetDefault("match.checkpoint_every", 1000)
	v.SetDefault("match.concurrency", 4)
	v.SetDefault("match.skip_invalid", false)
	v.SetDefault("predict.model_path", "models/hdb_price_model.yaml")

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

// Validate checks the fields a command needs.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "geocode":
		if c.Geocode.MapsCoKey == "" && c.Geocode.RadarKey == "" && !c.Geocode.UseOneMap {
			problems = append(problems, "geocode: one of mapsco_api_key, radar_api_key or use_onemap is required")
		}
		if c.Geocode.RateLimitRPS < 0 {
			problems = append(problems, "geocode.rate_limit_rps must not be negative")
		}
		b := c.Geocode.Bounds
		if !b.IsZero() && (b.MinLat > b.MaxLat || b.MinLon > b.MaxLon) {
			problems = append(problems, "geocode.bounds: min must not exceed max")
		}
	case "nearest":
		if c.Match.CheckpointEvery <= 0 {
			problems = append(problems, "match.checkpoint_every must be positive")
		}
		if c.Match.Concurrency <= 0 {
			problems = append(problems, "match.concurrency must be positive")
		}
	case "predict":
		if c.Predict.ModelPath == "" {
			problems = append(problems, "predict.model_path is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
