// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

// Duration accepts Go duration strings ("50m", "1h30m") and bare integers
// (seconds) in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return err
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ServerConfig struct {
	Port           int    `yaml:"port"`
	APIKey         string `yaml:"api_key"`          // bearer key for payment routes
	AdminJWTSecret string `yaml:"admin_jwt_secret"` // HS256 secret for admin sessions
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GatewayConfig struct {
	BaseURL  string   `yaml:"base_url"`
	ClientID string   `yaml:"client_id"`
	APIKey   string   `yaml:"api_key"`
	TokenTTL Duration `yaml:"token_ttl"` // cached-credential lifetime, shorter than the gateway's
}

type SchedulerConfig struct {
	ExpiryInterval      Duration `yaml:"expiry_interval"`
	ReconcileInterval   Duration `yaml:"reconcile_interval"`
	ReconcileStaleAfter Duration `yaml:"reconcile_stale_after"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Gateway.TokenTTL <= 0 {
		cfg.Gateway.TokenTTL = Duration(50 * time.Minute)
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = Duration(time.Hour)
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = Duration(time.Minute)
	}
	if cfg.Scheduler.ReconcileStaleAfter <= 0 {
		cfg.Scheduler.ReconcileStaleAfter = Duration(10 * time.Minute)
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Gateway.ClientID == "" || cfg.Gateway.APIKey == "" {
		return nil, errors.New("gateway.client_id and gateway.api_key are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
