package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env       string `env:"ENV"        envDefault:"dev"`  // dev, staging, prod
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"` // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json, text
	Port      int    `env:"PORT"       envDefault:"8080"`

	DatabaseDriver string `env:"AUTH_DATABASE_DRIVER" envDefault:"sqlite"`  // sqlite, postgres
	DatabaseFile   string `env:"AUTH_DATABASE_FILE"   envDefault:"auth.db"` // sqlite only
	DatabaseURL    string `env:"AUTH_DATABASE_URL"`                         // postgres only
	PepperFile     string `env:"AUTH_PEPPER_FILE"     envDefault:"pepper"`

	// SessionSecret signs session tokens. When empty a random secret is
	// generated on startup and every outstanding session stops validating.
	SessionSecret string        `env:"AUTH_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`
	Issuer        string        `env:"AUTH_ISSUER"      envDefault:"studio-auth"`

	Argon2MemoryKiB  uint32 `env:"AUTH_ARGON2_MEMORY_KIB"`
	Argon2Iterations uint32 `env:"AUTH_ARGON2_ITERATIONS"`

	BootstrapToken string `env:"BOOTSTRAP_TOKEN"` // empty disables POST /bootstrap

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	AuditMode          string `env:"AUDIT_MODE"           envDefault:"all"` // all, db, log, off

	// TrustedProxies lists the CIDRs or addresses allowed to set
	// X-Forwarded-For and X-Real-IP. Empty trusts nobody.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT"       envDefault:"5s"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	RateLimits httpx.RateLimitProfiles `envPrefix:"RATELIMIT_"`
}

// LoadConfig reads the configuration from the process environment. Rate
// limit variables override the built-in profiles one field at a time.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{})
}

func loadConfig(opts env.Options) (Config, error) {
	cfg := Config{RateLimits: httpx.DefaultRateLimitProfiles()}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the application cannot start with.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DatabaseFile) == "" {
			return errors.New("AUTH_DATABASE_FILE is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("AUTH_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if _, err := service.ParseAuditMode(c.AuditMode); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return errors.New("AUTH_SESSION_TTL must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	return nil
}
