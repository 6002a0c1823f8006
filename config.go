package sessiongate

import (
	"errors"
	"strings"
	"time"

	"github.com/skillx/sessiongate/issuer"
	"github.com/skillx/sessiongate/password"
	"github.com/skillx/sessiongate/session"
)

// Config holds every tunable of the Engine. Obtain one with DefaultConfig
// and override fields before passing it to Builder.WithConfig.
type Config struct {
	Session  SessionConfig
	Issuer   IssuerConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Database DatabaseConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls how sessions are written to Redis.
type SessionConfig struct {
	RedisPrefix string
	// TTL is the lifetime of a session key. It is never extended.
	TTL time.Duration
	// OperationTimeout bounds each session store call.
	OperationTimeout time.Duration
	// RecordLastLogin stamps the user record after a successful login when
	// the username is a registered email.
	RecordLastLogin bool
}

/*
====================================
ISSUER CONFIG
====================================
*/

// IssuerConfig locates the token issuer. It is only used when Builder has
// no issuer client injected.
type IssuerConfig struct {
	BaseURL    string
	TokenPath  string
	VerifyPath string
	Timeout    time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls password hashing at registration.
type PasswordConfig struct {
	BcryptCost int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling. Throttling is off by default.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DATABASE CONFIG
====================================
*/

// Supported user store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig describes the user store the composition root should open.
// The Engine itself only sees the userstore.Store it is given.
type DatabaseConfig struct {
	Driver          string
	URL             string
	SQLitePath      string
	MaxConnections  int32
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultConfig returns the production defaults: 18000 second sessions under
// "session:", bcrypt cost 12, audit and metrics on, throttling off.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:      session.DefaultPrefix,
			TTL:              18000 * time.Second,
			OperationTimeout: 2 * time.Second,
		},
		Issuer: IssuerConfig{
			TokenPath:  issuer.DefaultTokenPath,
			VerifyPath: issuer.DefaultVerifyPath,
			Timeout:    issuer.DefaultTimeout,
		},
		Password: PasswordConfig{
			BcryptCost: password.MinCost,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   false,
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Database: DatabaseConfig{
			Driver:          DriverMemory,
			SQLitePath:      "sessiongate.db",
			MaxConnections:  20,
			MaxConnIdleTime: 30 * time.Second,
			ConnectTimeout:  2 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// Every field is a value type.
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.TTL%time.Second != 0 {
		return errors.New("Session TTL must be a whole number of seconds")
	}
	if c.Session.OperationTimeout <= 0 {
		return errors.New("Session OperationTimeout must be > 0")
	}

	// Issuer
	if c.Issuer.Timeout < 0 {
		return errors.New("Issuer Timeout must be >= 0")
	}

	// Password
	if c.Password.BcryptCost < password.MinCost {
		return errors.New("Password BcryptCost must be >= 12")
	}
	if c.Password.BcryptCost > password.MaxCost {
		return errors.New("Password BcryptCost must be <= 31")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Database
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("Database URL is required for the postgres driver")
		}
		if c.Database.MaxConnections <= 0 {
			return errors.New("Database MaxConnections must be > 0")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return errors.New("Database SQLitePath is required for the sqlite driver")
		}
	default:
		return errors.New("Database Driver must be one of memory, postgres, sqlite")
	}

	return nil
}
