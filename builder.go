package sessiongate

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/skillx/sessiongate/internal/rate"
	"github.com/skillx/sessiongate/issuer"
	"github.com/skillx/sessiongate/password"
	"github.com/skillx/sessiongate/session"
	"github.com/skillx/sessiongate/userstore"
)

// Builder assembles an Engine from injected handles. The caller owns every
// handle it passes in; Engine.Close never closes them.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     userstore.Store
	issuer    TokenIssuer
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session store and login limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the store used by Register, SeedUser and last-login
// stamping.
func (b *Builder) WithUserStore(store userstore.Store) *Builder {
	b.users = store
	return b
}

// WithIssuer injects a token issuer. Without one, Build creates an
// issuer.Client from Config.Issuer.
func (b *Builder) WithIssuer(iss TokenIssuer) *Builder {
	b.issuer = iss
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine. No network I/O
// happens here; Redis, the issuer and the user store are dialled on first
// use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokenIssuer := b.issuer
	if tokenIssuer == nil {
		client, err := issuer.New(issuer.Config{
			BaseURL:    cfg.Issuer.BaseURL,
			TokenPath:  cfg.Issuer.TokenPath,
			VerifyPath: cfg.Issuer.VerifyPath,
			Timeout:    cfg.Issuer.Timeout,
		})
		if err != nil {
			return nil, err
		}
		tokenIssuer = client
	}

	ph, err := password.NewBcrypt(password.Config{Cost: cfg.Password.BcryptCost})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		users:        b.users,
		issuer:       tokenIssuer,
		passwordHash: ph,
		logger:       logger.With("component", "sessiongate"),
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.initFlowDeps()

	b.built = true

	return engine, nil
}
