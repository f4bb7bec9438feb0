package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Mode     Mode   `mapstructure:"mode"`
	HTTPAddr string `mapstructure:"http_addr"`

	DBDriver string `mapstructure:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn"`

	HMACSecret string        `mapstructure:"auth_hmac_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	CORSOrigins        []string      `mapstructure:"cors_origins"`
	LoginRatePerMinute int           `mapstructure:"login_rate_per_minute"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`

	// demo data for offline mode
	SeedDemo      bool   `mapstructure:"seed_demo"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

var defaults = map[string]any{
	"mode":                  string(ModeOffline),
	"http_addr":             ":8080",
	"db_driver":             "sqlite",
	"db_dsn":                "",
	"auth_hmac_secret":      devSecret,
	"token_ttl":             "8h",
	"log_level":             "info",
	"log_file":              "",
	"cors_origins":          "http://localhost:3000,http://localhost:5173",
	"login_rate_per_minute": 10,
	"request_timeout":       "15s",
	"seed_demo":             false,
	"admin_email":           "admin@example.com",
	"admin_password":        "admin123",
}

// Load reads defaults, then the YAML file named by CONFIG_FILE (if any), then
// environment variables. Env names are the upper-cased keys, e.g. HTTP_ADDR.
func Load() (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	_ = v.BindEnv("config_file", "CONFIG_FILE")

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown MODE %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.LoginRatePerMinute <= 0 {
		return errors.New("config: LOGIN_RATE_PER_MINUTE must be positive")
	}
	if c.Mode == ModeOnline {
		if c.HMACSecret == "" || c.HMACSecret == devSecret {
			return errors.New("config: AUTH_HMAC_SECRET must be set in online mode")
		}
		if c.SeedDemo {
			return errors.New("config: SEED_DEMO is only allowed in offline mode")
		}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		for _, s := range strings.Split(p, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
