package sessiongate

import (
	"testing"
	"time"

	"github.com/skillx/sessiongate/userstore"
)

func TestDefaultConfigMatchesSessionContract(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Session.TTL != 18000*time.Second {
		t.Fatalf("expected 18000s TTL, got %v", cfg.Session.TTL)
	}
	if cfg.Session.RedisPrefix != "session:" {
		t.Fatalf("expected session: prefix, got %q", cfg.Session.RedisPrefix)
	}
	if cfg.Password.BcryptCost != 12 {
		t.Fatalf("expected bcrypt cost 12, got %d", cfg.Password.BcryptCost)
	}
	if cfg.Issuer.TokenPath != "/token" || cfg.Issuer.VerifyPath != "/token/verify" {
		t.Fatalf("unexpected issuer paths %q %q", cfg.Issuer.TokenPath, cfg.Issuer.VerifyPath)
	}
	if cfg.Security.EnableLoginThrottle {
		t.Fatal("login throttle must be opt-in")
	}
	if cfg.Database.MaxConnections != 20 || cfg.Database.MaxConnIdleTime != 30*time.Second || cfg.Database.ConnectTimeout != 2*time.Second {
		t.Fatalf("unexpected pool defaults %+v", cfg.Database)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "blank prefix", mutate: func(c *Config) { c.Session.RedisPrefix = " " }},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }},
		{name: "fractional ttl", mutate: func(c *Config) { c.Session.TTL = 1500 * time.Millisecond }},
		{name: "zero op timeout", mutate: func(c *Config) { c.Session.OperationTimeout = 0 }},
		{name: "negative issuer timeout", mutate: func(c *Config) { c.Issuer.Timeout = -time.Second }},
		{name: "bcrypt too cheap", mutate: func(c *Config) { c.Password.BcryptCost = 10 }},
		{name: "bcrypt too expensive", mutate: func(c *Config) { c.Password.BcryptCost = 32 }},
		{name: "bcrypt 14", mutate: func(c *Config) { c.Password.BcryptCost = 14 }, wantValid: true},
		{
			name: "throttle without attempts",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = true
				c.Security.MaxLoginAttempts = 0
			},
		},
		{
			name: "throttle without cooldown",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = true
				c.Security.LoginCooldownDuration = 0
			},
		},
		{name: "throttle defaults", mutate: func(c *Config) { c.Security.EnableLoginThrottle = true }, wantValid: true},
		{name: "audit zero buffer", mutate: func(c *Config) { c.Audit.BufferSize = 0 }},
		{
			name: "audit disabled zero buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
		{name: "latency without metrics", mutate: func(c *Config) { c.Metrics.Enabled = false }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }},
		{
			name: "postgres with url",
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.URL = "postgres://localhost/app"
			},
			wantValid: true,
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.Database.SQLitePath = ""
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildRequiresHandles(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	if _, err := New().WithUserStore(userstore.NewMemoryStore()).WithIssuer(stubIssuer{}).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithRedis(rdb).WithIssuer(stubIssuer{}).Build(); err == nil {
		t.Fatal("expected error without user store")
	}
	if _, err := New().WithRedis(rdb).WithUserStore(userstore.NewMemoryStore()).Build(); err == nil {
		t.Fatal("expected error without issuer or issuer base url")
	}
}

func TestBuildCreatesIssuerClientFromConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := DefaultConfig()
	cfg.Issuer.BaseURL = "http://issuer.internal:8000/api"
	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithUserStore(userstore.NewMemoryStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if engine.issuer == nil {
		t.Fatal("expected issuer client to be created")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().WithRedis(rdb).WithUserStore(userstore.NewMemoryStore()).WithIssuer(stubIssuer{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := DefaultConfig()
	cfg.Password.BcryptCost = 4
	if _, err := New().WithConfig(cfg).WithRedis(rdb).WithUserStore(userstore.NewMemoryStore()).WithIssuer(stubIssuer{}).Build(); err == nil {
		t.Fatal("expected invalid config to fail Build")
	}
}

func TestAuthErrorMessage(t *testing.T) {
	err := opError("login", ErrInvalidCredentials, "Account disabled")
	ae, ok := err.(*AuthError)
	if !ok {
		t.Fatalf("expected *AuthError, got %T", err)
	}
	if ae.Message() != "Account disabled" {
		t.Fatalf("expected issuer detail, got %q", ae.Message())
	}
	if ae.Error() != "login: invalid credentials: Account disabled" {
		t.Fatalf("unexpected Error() %q", ae.Error())
	}
	if got := UserMessage(opError("login", ErrMalformedIssuerResponse, "")); got != "Token not received from backend" {
		t.Fatalf("unexpected message %q", got)
	}
}
