// Package config loads lifesync settings. LIFESYNC_* environment variables
// override the config file, which overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Remote RemoteConfig `mapstructure:"remote"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Sync   SyncConfig   `mapstructure:"sync"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
}

type RemoteConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	Token        string        `mapstructure:"token"`
	OIDC         OIDCConfig    `mapstructure:"oidc"`
	RateLimit    float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Burst        int           `mapstructure:"burst" validate:"gte=0"`
}

// OIDCConfig enables the client credentials grant when Issuer is set.
type OIDCConfig struct {
	Issuer       string   `mapstructure:"issuer" validate:"omitempty,url"`
	ClientID     string   `mapstructure:"client_id" validate:"required_with=Issuer"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type CacheConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres memory"`
	DSN    string `mapstructure:"dsn" validate:"required_unless=Driver memory"`
}

type SyncConfig struct {
	Interval           time.Duration `mapstructure:"interval" validate:"gte=1s"`
	QueueOfflineWrites bool          `mapstructure:"queue_offline_writes"`
	CoalesceIdempotent bool          `mapstructure:"coalesce_idempotent"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	// File, when set, receives logs through a rotating writer.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// DefaultDir is where the config file and the sqlite cache live by default.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lifesync"
	}
	return filepath.Join(home, ".lifesync")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "http://localhost:8080")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("remote.probe_timeout", 3*time.Second)
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.oidc.issuer", "")
	v.SetDefault("remote.oidc.client_id", "")
	v.SetDefault("remote.oidc.client_secret", "")
	v.SetDefault("remote.oidc.scopes", []string{})
	v.SetDefault("remote.rate_limit", 10.0)
	v.SetDefault("remote.burst", 5)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.dsn", filepath.Join(DefaultDir(), "cache.db"))
	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("sync.queue_offline_writes", true)
	v.SetDefault("sync.coalesce_idempotent", true)
	v.SetDefault("http.addr", "127.0.0.1:8787")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads configuration. An explicit path must exist; otherwise
// config.yaml in DefaultDir is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("LIFESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
