package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	StoreDriver           string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer            string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience          string        `mapstructure:"AUTH_AUDIENCE"`
	TokenTTL              time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	AMQPURL               string        `mapstructure:"AMQP_URL"`
	EventsQueue           string        `mapstructure:"EVENTS_QUEUE"`
	DashboardPollInterval time.Duration `mapstructure:"DASHBOARD_POLL_INTERVAL"`
	UpcomingLimit         int           `mapstructure:"UPCOMING_LIMIT"`
	ReportWindowMonths    int           `mapstructure:"REPORT_WINDOW_MONTHS"`
	InFlightTTL           time.Duration `mapstructure:"INFLIGHT_TTL"`
	Timezone              string        `mapstructure:"TIMEZONE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AUTH_ISSUER", "lunysse")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("EVENTS_QUEUE", "lunysse.requests")
	v.SetDefault("DASHBOARD_POLL_INTERVAL", "5s")
	v.SetDefault("UPCOMING_LIMIT", 5)
	v.SetDefault("REPORT_WINDOW_MONTHS", 6)
	v.SetDefault("INFLIGHT_TTL", "30s")
	v.SetDefault("TIMEZONE", "UTC")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "TOKEN_TTL", "CORS_ORIGINS",
		"REDIS_URL", "AMQP_URL", "EVENTS_QUEUE", "DASHBOARD_POLL_INTERVAL",
		"UPCOMING_LIMIT", "REPORT_WINDOW_MONTHS", "INFLIGHT_TTL", "TIMEZONE",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StoreDriverPostgres)
	}

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		log.Println("WARNING: AUTH_SIGNING_KEY is empty; using an insecure development key.")
		cfg.AuthSigningKey = "lunysse-dev-signing-key"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesMemoryStore reports whether the in-memory development store is selected.
func (c *Config) UsesMemoryStore() bool {
	return c.StoreDriver == StoreDriverMemory
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.StoreDriver != StoreDriverPostgres && c.StoreDriver != StoreDriverMemory {
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}
	if c.IsProduction() && c.UsesMemoryStore() {
		return fmt.Errorf("STORE_DRIVER=memory is a development stub and cannot run in production")
	}
	if c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required")
	}
	if c.IsProduction() && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters in production, got %d", len(c.AuthSigningKey))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.DashboardPollInterval < time.Second {
		return fmt.Errorf("DASHBOARD_POLL_INTERVAL must be at least 1s, got %s", c.DashboardPollInterval)
	}
	if c.UpcomingLimit <= 0 {
		return fmt.Errorf("UPCOMING_LIMIT must be positive, got %d", c.UpcomingLimit)
	}
	if c.ReportWindowMonths < 1 || c.ReportWindowMonths > 24 {
		return fmt.Errorf("REPORT_WINDOW_MONTHS must be between 1 and 24, got %d", c.ReportWindowMonths)
	}
	if c.InFlightTTL <= 0 {
		return fmt.Errorf("INFLIGHT_TTL must be positive, got %s", c.InFlightTTL)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TIMEZONE. Calendar days on the dashboard and report
// months are counted in this zone, and date-only appointment values are
// midnight in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
