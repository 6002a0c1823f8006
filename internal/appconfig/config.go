// Package appconfig loads process configuration for the sessiongate binaries
// and builds the resources they own: logger, Redis client and user store.
package appconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/skillx/sessiongate"
)

// Config is the process configuration read from SESSIONGATE_* variables.
type Config struct {
	HTTPAddr string `env:"SESSIONGATE_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"SESSIONGATE_LOG_LEVEL" envDefault:"info"`

	RedisURL string `env:"SESSIONGATE_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	IssuerURL        string        `env:"SESSIONGATE_ISSUER_URL"         envDefault:"http://127.0.0.1:8000/api"`
	IssuerTokenPath  string        `env:"SESSIONGATE_ISSUER_TOKEN_PATH"  envDefault:"/token"`
	IssuerVerifyPath string        `env:"SESSIONGATE_ISSUER_VERIFY_PATH" envDefault:"/token/verify"`
	IssuerTimeout    time.Duration `env:"SESSIONGATE_ISSUER_TIMEOUT"     envDefault:"5s"`

	UserStore   string `env:"SESSIONGATE_USER_STORE"   envDefault:"memory"`
	DatabaseURL string `env:"SESSIONGATE_DATABASE_URL"`
	SQLitePath  string `env:"SESSIONGATE_SQLITE_PATH"  envDefault:"sessiongate.db"`
	DBMaxConns  int32  `env:"SESSIONGATE_DB_MAX_CONNS" envDefault:"20"`

	SeedAdmin        bool `env:"SESSIONGATE_SEED_ADMIN"         envDefault:"false"`
	AuditEnabled     bool `env:"SESSIONGATE_AUDIT_ENABLED"      envDefault:"true"`
	MetricsEnabled   bool `env:"SESSIONGATE_METRICS_ENABLED"    envDefault:"true"`
	LoginMaxAttempts int  `env:"SESSIONGATE_LOGIN_MAX_ATTEMPTS" envDefault:"0"`

	SecureCookies   bool          `env:"SESSIONGATE_SECURE_COOKIES"   envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SESSIONGATE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.UserStore = strings.ToLower(strings.TrimSpace(cfg.UserStore))
	return cfg, nil
}

// LoadFrom reads Config from vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: vars})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.UserStore = strings.ToLower(strings.TrimSpace(cfg.UserStore))
	return cfg, nil
}

// EngineConfig maps process settings onto the library configuration. A
// positive LoginMaxAttempts turns on login throttling.
func (c Config) EngineConfig() sessiongate.Config {
	cfg := sessiongate.DefaultConfig()

	cfg.Issuer.BaseURL = c.IssuerURL
	cfg.Issuer.TokenPath = c.IssuerTokenPath
	cfg.Issuer.VerifyPath = c.IssuerVerifyPath
	cfg.Issuer.Timeout = c.IssuerTimeout

	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled

	if c.LoginMaxAttempts > 0 {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = c.LoginMaxAttempts
	}

	cfg.Database.Driver = c.UserStore
	cfg.Database.URL = c.DatabaseURL
	cfg.Database.SQLitePath = c.SQLitePath
	if c.DBMaxConns > 0 {
		cfg.Database.MaxConnections = c.DBMaxConns
	}
	return cfg
}
