package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"`
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Gateway        GatewayRuntimeConfig  `yaml:"gateway"`
	Gift           GiftRuntimeConfig     `yaml:"gift"`
}

type DatabaseRuntimeConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GatewayRuntimeConfig tunes connection liveness and presence churn handling.
// Zero values fall back to the package constants.
type GatewayRuntimeConfig struct {
	HeartbeatTimeoutSec int `yaml:"heartbeat_timeout_sec"`
	ReapIntervalSec     int `yaml:"reap_interval_sec"`
	DuplicateJoinSec    int `yaml:"duplicate_join_sec"`
}

// GiftRuntimeConfig tunes the revenue split. Percentages must sum to 100.
type GiftRuntimeConfig struct {
	ReceiverPercent int `yaml:"receiver_percent"`
	OwnerPercent    int `yaml:"owner_percent"`
	PlatformPercent int `yaml:"platform_percent"`
}

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:    defaultDBHost,
			Port:    defaultDBPort,
			User:    defaultDBUser,
			Name:    defaultDBName,
			Charset: defaultDBCharset,
			Loc:     defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
		},
		Gateway: GatewayRuntimeConfig{
			HeartbeatTimeoutSec: int(HeartbeatTimeout.Seconds()),
			ReapIntervalSec:     int(ReapInterval.Seconds()),
			DuplicateJoinSec:    int(DuplicateJoinWindow.Seconds()),
		},
		Gift: GiftRuntimeConfig{
			ReceiverPercent: ReceiverSharePercent,
			OwnerPercent:    OwnerSharePercent,
			PlatformPercent: PlatformSharePercent,
		},
	}
}

func (cfg *AppConfig) normalize() {
	if cfg.DSN == "" {
		if cfg.Database.DSN != "" {
			cfg.DSN = cfg.Database.DSN
		} else {
			cfg.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=%s",
				cfg.Database.User, cfg.Database.Password,
				cfg.Database.Host, cfg.Database.Port,
				cfg.Database.Name, cfg.Database.Charset, cfg.Database.Loc)
		}
	}
	if cfg.RedisURL == "" {
		if cfg.Redis.URL != "" {
			cfg.RedisURL = cfg.Redis.URL
		} else {
			auth := ""
			if cfg.Redis.Username != "" || cfg.Redis.Password != "" {
				auth = fmt.Sprintf("%s:%s@", cfg.Redis.Username, cfg.Redis.Password)
			}
			cfg.RedisURL = fmt.Sprintf("redis://%s%s:%d/%d", auth, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
		}
	}
}

func (cfg *AppConfig) validate(path string) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Gateway.HeartbeatTimeoutSec < 1 {
		return fmt.Errorf("invalid gateway.heartbeat_timeout_sec %d in %q", cfg.Gateway.HeartbeatTimeoutSec, path)
	}
	if cfg.Gateway.ReapIntervalSec < 1 {
		return fmt.Errorf("invalid gateway.reap_interval_sec %d in %q", cfg.Gateway.ReapIntervalSec, path)
	}
	sum := cfg.Gift.ReceiverPercent + cfg.Gift.OwnerPercent + cfg.Gift.PlatformPercent
	if sum != 100 {
		return fmt.Errorf("gift split percentages sum to %d in %q, expected 100", sum, path)
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (cfg *AppConfig) IsDev() bool {
	return strings.EqualFold(cfg.Env, "development") || strings.EqualFold(cfg.Env, "dev")
}
