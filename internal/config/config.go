package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bloomwatch/backend/internal/appeears"
	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/internal/phenology"
)

// Config is the process configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	AppEEARS  AppEEARSConfig  `mapstructure:"appeears"`
	NDVI      NDVIConfig      `mapstructure:"ndvi"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Phenology PhenologyConfig `mapstructure:"phenology"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Env         string `mapstructure:"env"`
	ServiceName string `mapstructure:"service_name"`
}

// LogConfig holds the logger settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppEEARSConfig holds the remote service account and job pacing
type AppEEARSConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	TokenMaxAge     time.Duration `mapstructure:"token_max_age"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
}

// NDVIConfig holds acquisition defaults
type NDVIConfig struct {
	DefaultProduct string `mapstructure:"default_product"`
	MaxConcurrent  int64  `mapstructure:"max_concurrent"`
}

// DatabaseConfig holds the journal connection string; empty means no database
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// PhenologyConfig overrides the classifier stage thresholds
type PhenologyConfig struct {
	FlatSlope   float64 `mapstructure:"flat_slope"`
	RisingSlope float64 `mapstructure:"rising_slope"`
	PeakRatio   float64 `mapstructure:"peak_ratio"`
}

// env maps config keys to environment variables
var env = map[string]string{
	"server.host":                "HOST",
	"server.port":                "PORT",
	"server.env":                 "GO_ENV",
	"server.service_name":        "SERVICE_NAME",
	"log.level":                  "LOG_LEVEL",
	"appeears.base_url":          "APPEEARS_API_URL",
	"appeears.username":          "APPEEARS_USER",
	"appeears.password":          "APPEEARS_PASS",
	"appeears.token_max_age":     "APPEEARS_TOKEN_MAX_AGE",
	"appeears.poll_interval":     "APPEEARS_POLL_INTERVAL",
	"appeears.poll_max_attempts": "APPEEARS_POLL_MAX_ATTEMPTS",
	"ndvi.default_product":       "NDVI_DEFAULT_PRODUCT",
	"ndvi.max_concurrent":        "NDVI_MAX_CONCURRENT",
	"database.url":               "DATABASE_URL",
	"phenology.flat_slope":       "PHENOLOGY_FLAT_SLOPE",
	"phenology.rising_slope":     "PHENOLOGY_RISING_SLOPE",
	"phenology.peak_ratio":       "PHENOLOGY_PEAK_RATIO",
}

func setDefaults(v *viper.Viper) {
	th := phenology.DefaultThresholds()
	poll := appeears.DefaultPollPolicy()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.service_name", "bloomwatch-backend")
	v.SetDefault("log.level", "info")
	v.SetDefault("appeears.base_url", appeears.DefaultBaseURL)
	v.SetDefault("appeears.username", "")
	v.SetDefault("appeears.password", "")
	v.SetDefault("appeears.token_max_age", appeears.DefaultTokenMaxAge)
	v.SetDefault("appeears.poll_interval", poll.Interval)
	v.SetDefault("appeears.poll_max_attempts", poll.MaxAttempts)
	v.SetDefault("ndvi.default_product", domain.DefaultProduct)
	v.SetDefault("ndvi.max_concurrent", 1)
	v.SetDefault("database.url", "")
	v.SetDefault("phenology.flat_slope", th.FlatSlope)
	v.SetDefault("phenology.rising_slope", th.RisingSlope)
	v.SetDefault("phenology.peak_ratio", th.PeakRatio)
}

// Load reads envFile (or ./.env when empty) into the process environment and
// builds the configuration from environment variables. A missing ./.env is
// not an error; a missing explicit envFile is.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v, err := newViper("")
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	cfg.AppEEARS.BaseURL = strings.TrimRight(cfg.AppEEARS.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadThresholds reads only the phenology overrides. Server, AppEEARS and
// database variables are neither read nor validated.
func LoadThresholds(envFile string) (phenology.Thresholds, error) {
	if err := loadEnvFile(envFile); err != nil {
		return phenology.Thresholds{}, err
	}

	v, err := newViper("phenology.")
	if err != nil {
		return phenology.Thresholds{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return phenology.Thresholds{}, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	th := cfg.Thresholds()
	if err := th.Validate(); err != nil {
		return phenology.Thresholds{}, fmt.Errorf("config validation failed: %w", err)
	}
	return th, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("config: failed to load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: failed to load .env: %w", err)
	}
	return nil
}

// newViper binds the environment variables of keys starting with prefix on
// top of the defaults
func newViper(prefix string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("config: failed to bind %s: %w", name, err)
		}
	}
	return v, nil
}

// Validate checks ranges and required values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.AppEEARS.BaseURL == "" {
		return fmt.Errorf("appeears base url is required")
	}
	if c.AppEEARS.TokenMaxAge <= 0 {
		return fmt.Errorf("invalid token max age: %s", c.AppEEARS.TokenMaxAge)
	}
	if c.AppEEARS.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval: %s", c.AppEEARS.PollInterval)
	}
	if c.AppEEARS.PollMaxAttempts <= 0 {
		return fmt.Errorf("invalid poll max attempts: %d", c.AppEEARS.PollMaxAttempts)
	}

	if c.NDVI.MaxConcurrent < 1 {
		return fmt.Errorf("invalid max concurrent ndvi requests: %d", c.NDVI.MaxConcurrent)
	}
	if c.NDVI.DefaultProduct == "" {
		return fmt.Errorf("default ndvi product is required")
	}

	return c.Thresholds().Validate()
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// CredentialsConfigured reports whether both AppEEARS username and password are set
func (c *Config) CredentialsConfigured() bool {
	return c.AppEEARS.Username != "" && c.AppEEARS.Password != ""
}

// Thresholds returns the classifier tuning with configured overrides applied
func (c *Config) Thresholds() phenology.Thresholds {
	th := phenology.DefaultThresholds()
	th.FlatSlope = c.Phenology.FlatSlope
	th.RisingSlope = c.Phenology.RisingSlope
	th.PeakRatio = c.Phenology.PeakRatio
	return th
}

// PollPolicy returns the AppEEARS status polling policy
func (c *Config) PollPolicy() appeears.PollPolicy {
	return appeears.PollPolicy{
		Interval:    c.AppEEARS.PollInterval,
		MaxAttempts: c.AppEEARS.PollMaxAttempts,
	}
}
