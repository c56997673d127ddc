// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://./data/turf.db"`

	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"cricket123"`

	CashfreeAppID  string `env:"CASHFREE_APP_ID"`
	CashfreeSecret string `env:"CASHFREE_SECRET"`
	CashfreeEnv    string `env:"CASHFREE_ENV" envDefault:"production"`

	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	PollInterval         time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	PaymentSweepInterval time.Duration `env:"PAYMENT_SWEEP_INTERVAL" envDefault:"1m"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return cfg, nil
}

// CORSOriginList splits CORS_ORIGINS into individual origins.
func (c Config) CORSOriginList() []string {
	if strings.TrimSpace(c.CORSOrigins) == "*" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Driver names the storage backend selected by DATABASE_URL.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverLibSQL   Driver = "libsql"
	DriverMemory   Driver = "memory"
)

// Database resolves DATABASE_URL into a driver and the DSN that driver expects.
// Hosting providers hand out postgres:// URLs; pgx prefers postgresql://.
func (c Config) Database() (Driver, string, error) {
	url := strings.TrimSpace(c.DatabaseURL)
	switch {
	case strings.HasPrefix(url, "postgres://"):
		return DriverPostgres, "postgresql://" + strings.TrimPrefix(url, "postgres://"), nil
	case strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "libsql://"):
		return DriverLibSQL, url, nil
	case url == "memory://" || url == "memory":
		return DriverMemory, "", nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URL %q", url)
}
