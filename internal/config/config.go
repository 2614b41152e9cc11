package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/harybot/breakroom/internal/storage"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// TelegramConfig defines the chat transport settings
type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	Mode          string `mapstructure:"mode"`        // "poll" or "webhook"
	WebhookURL    string `mapstructure:"webhook_url"` // public HTTPS endpoint Telegram calls
	BindAddress   string `mapstructure:"bind_address"`
	WebhookPort   int    `mapstructure:"webhook_port"`
	PollTimeout   int    `mapstructure:"poll_timeout"` // long-poll timeout in seconds
	Debug         bool   `mapstructure:"debug"`
	AllowedGroups []int64 `mapstructure:"allowed_groups"` // empty = respond everywhere
}

// StorageConfig defines snapshot persistence settings
type StorageConfig struct {
	Type        string      `mapstructure:"type"` // "file", "bolt" or "redis"
	Path        string      `mapstructure:"path"`
	OnSaveError string      `mapstructure:"on_save_error"` // "keep" or "rollback"
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// TrackingConfig defines the session engine behavior
type TrackingConfig struct {
	Timezone        string         `mapstructure:"timezone"`
	DoubleDeparture string         `mapstructure:"double_departure"` // "replace" or "reject"
	Limits          map[string]int `mapstructure:"limits"`           // minutes per action
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the Prometheus scrape endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("BREAKROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Telegram defaults
	v.SetDefault("telegram.mode", "poll")
	v.SetDefault("telegram.bind_address", "0.0.0.0")
	v.SetDefault("telegram.webhook_port", 8443)
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.debug", false)

	// Storage defaults
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.path", "/var/lib/breakroom/snapshot.json")
	v.SetDefault("storage.on_save_error", "keep")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Tracking defaults: limits in minutes per action
	v.SetDefault("tracking.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("tracking.double_departure", "replace")
	v.SetDefault("tracking.limits.eat", 30)
	v.SetDefault("tracking.limits.smoke", 15)
	v.SetDefault("tracking.limits.restroom_long", 15)
	v.SetDefault("tracking.limits.restroom_short", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Telegram.Mode {
	case "poll":
	case "webhook":
		if cfg.Telegram.WebhookURL == "" {
			return fmt.Errorf("telegram.webhook_url is required in webhook mode")
		}
		if cfg.Telegram.WebhookPort <= 0 || cfg.Telegram.WebhookPort > 65535 {
			return fmt.Errorf("invalid webhook port: %d", cfg.Telegram.WebhookPort)
		}
	default:
		return fmt.Errorf("invalid telegram mode: %s (must be poll or webhook)", cfg.Telegram.Mode)
	}

	switch cfg.Storage.Type {
	case "file", "bolt":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for %s storage", cfg.Storage.Type)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be file, bolt or redis)", cfg.Storage.Type)
	}

	switch cfg.Storage.OnSaveError {
	case "keep", "rollback":
	default:
		return fmt.Errorf("invalid storage.on_save_error: %s (must be keep or rollback)", cfg.Storage.OnSaveError)
	}

	switch cfg.Tracking.DoubleDeparture {
	case "replace", "reject":
	default:
		return fmt.Errorf("invalid tracking.double_departure: %s (must be replace or reject)", cfg.Tracking.DoubleDeparture)
	}

	if _, err := cfg.Tracking.Location(); err != nil {
		return fmt.Errorf("invalid tracking.timezone: %w", err)
	}

	if _, err := cfg.Tracking.ActionLimits(); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// Location resolves the configured tracking timezone.
func (c TrackingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ActionLimits resolves the configured per-action limits in minutes.
// Every known action must have a positive limit; unknown keys are
// rejected rather than silently ignored.
func (c TrackingConfig) ActionLimits() (map[storage.Action]int, error) {
	limits := make(map[storage.Action]int, len(storage.Actions))
	for key, minutes := range c.Limits {
		action := storage.Action(key)
		if !action.Valid() {
			return nil, fmt.Errorf("unknown action in tracking.limits: %s", key)
		}
		if minutes <= 0 {
			return nil, fmt.Errorf("tracking.limits.%s must be positive, got %d", key, minutes)
		}
		limits[action] = minutes
	}
	for _, action := range storage.Actions {
		if _, ok := limits[action]; !ok {
			return nil, fmt.Errorf("tracking.limits.%s is not set", action)
		}
	}
	return limits, nil
}
