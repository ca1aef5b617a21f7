package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultSessionSecret = "secret_key_change_me"
	defaultJWTSecret     = "jwt_secret_change_me"
)

// Config holds process settings read from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`
	SiteURL     string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"host=localhost user=postgres password=postgres dbname=studybud port=5432 sslmode=disable"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"secret_key_change_me"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"jwt_secret_change_me"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	ScoreFlushInterval time.Duration `env:"SCORE_FLUSH_INTERVAL" envDefault:"500ms"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.ScoreFlushInterval <= 0 {
		return fmt.Errorf("SCORE_FLUSH_INTERVAL must be positive")
	}
	if c.GinMode == "release" {
		if c.SessionSecret == "" || c.SessionSecret == defaultSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set in release mode")
		}
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in release mode")
		}
	}
	return nil
}
