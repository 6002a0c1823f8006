package sessiongate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/skillx/sessiongate/internal/flows"
	"github.com/skillx/sessiongate/internal/rate"
	"github.com/skillx/sessiongate/issuer"
	"github.com/skillx/sessiongate/password"
	"github.com/skillx/sessiongate/session"
	"github.com/skillx/sessiongate/userstore"
)

// Engine is the session manager and registration gate. It is safe for
// concurrent use after Builder.Build.
type Engine struct {
	config       Config
	sessionStore *session.Store
	users        userstore.Store
	issuer       TokenIssuer
	passwordHash *password.Bcrypt
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	logger       *slog.Logger
	flows        flows.Service
}

// Close drains pending audit events. Injected handles are left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Login authenticates username and password against the token issuer and
// binds the returned access token to a new session id, stored for
// Config.Session.TTL. The refresh token is discarded.
//
// Errors are *AuthError values whose Kind is one of ErrMissingCredentials,
// ErrInvalidCredentials, ErrMalformedIssuerResponse, ErrIssuerUnavailable,
// ErrStoreUnavailable or ErrLoginRateLimited. No session exists after a
// failed login.
func (e *Engine) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if !e.ready() {
		return LoginResult{}, opError("login", ErrEngineNotReady, "")
	}
	id, err := e.flows.Login(ctx, username, password)
	if err != nil {
		return LoginResult{}, e.classify("login", err)
	}
	return LoginResult{SessionID: id}, nil
}

// Validate reports whether sessionID names a live session whose access
// token the issuer still accepts. It fails closed: any backend error yields
// Valid == false and is logged, never returned. Validate does not modify
// the session or its remaining lifetime.
func (e *Engine) Validate(ctx context.Context, sessionID string) ValidateResult {
	if !e.ready() {
		return ValidateResult{}
	}
	res := e.flows.Validate(ctx, sessionID)
	return ValidateResult{Valid: res.Valid}
}

// Logout revokes sessionID. Logging out an unknown or expired session is
// not an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return opError("logout", ErrEngineNotReady, "")
	}
	if err := e.flows.Logout(ctx, sessionID); err != nil {
		return e.classify("logout", err)
	}
	return nil
}

// Register creates a user with a bcrypt-hashed password. The email is
// trimmed and lower-cased. A taken email yields ErrEmailTaken even when two
// registrations race.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if !e.ready() {
		return RegisterResult{}, opError("register", ErrEngineNotReady, "")
	}
	id, err := e.flows.Register(ctx, flows.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return RegisterResult{}, e.classify("register", err)
	}
	return RegisterResult{UserID: id}, nil
}

// Ping measures one Redis round trip.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if !e.ready() {
		return 0, opError("ping", ErrEngineNotReady, "")
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.Session.OperationTimeout)
	defer cancel()
	d, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return d, opError("ping", ErrStoreUnavailable, "")
	}
	return d, nil
}

// SessionLifetime returns the TTL applied to new sessions.
func (e *Engine) SessionLifetime() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Session.TTL
}

// SessionTTL returns the remaining lifetime of sessionID.
func (e *Engine) SessionTTL(ctx context.Context, sessionID string) (time.Duration, error) {
	if !e.ready() {
		return 0, opError("session_ttl", ErrEngineNotReady, "")
	}
	if !session.ValidID(sessionID) {
		return 0, session.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.Session.OperationTimeout)
	defer cancel()
	return e.sessionStore.TTL(ctx, sessionID)
}

var errorKinds = []error{
	ErrMissingSessionID,
	ErrMissingCredentials,
	ErrInvalidCredentials,
	ErrMalformedIssuerResponse,
	ErrIssuerUnavailable,
	ErrStoreUnavailable,
	ErrMissingFields,
	ErrEmailTaken,
	ErrPasswordPolicy,
	ErrLoginRateLimited,
	ErrEngineNotReady,
	ErrInternal,
}

// classify turns a flow error into an *AuthError. Errors that are already
// classified keep their detail.
func (e *Engine) classify(op string, err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return opError(op, kind, "")
		}
	}
	e.logger.Error("unclassified failure", "op", op, "err", err)
	return opError(op, ErrInternal, "")
}

// Flow adapters. Each one classifies backend errors into sentinels so the
// flows never see transport types.

func (e *Engine) issueToken(ctx context.Context, username, password string) (string, error) {
	pair, err := e.issuer.IssueToken(ctx, username, password)
	if err != nil {
		if rej, ok := issuer.IsRejected(err); ok {
			return "", opError("login", ErrInvalidCredentials, rej.Detail)
		}
		if errors.Is(err, issuer.ErrMalformedResponse) {
			e.logger.Warn("issuer returned malformed token response", "op", "login", "err", err)
			return "", opError("login", ErrMalformedIssuerResponse, "")
		}
		e.metricInc(MetricIssuerUnavailable)
		e.logger.Warn("issuer token request failed", "op", "login", "err", err)
		return "", opError("login", ErrIssuerUnavailable, "")
	}
	if pair.Access == "" || pair.Refresh == "" {
		return "", opError("login", ErrMalformedIssuerResponse, "")
	}
	return pair.Access, nil
}

func (e *Engine) newSessionID() (string, error) {
	id, err := session.NewID()
	if err != nil {
		e.logger.Error("session id generation failed", "op", "login", "err", err)
		return "", opError("login", ErrInternal, "")
	}
	return id, nil
}

// saveSession runs detached from the caller's cancellation: once the issuer
// has handed out a token the write either completes or times out on its own.
func (e *Engine) saveSession(ctx context.Context, sessionID, accessToken string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Session.OperationTimeout)
	defer cancel()

	err := e.sessionStore.Set(ctx, sessionID, accessToken, e.config.Session.TTL)
	if err == nil || errors.Is(err, session.ErrIDCollision) {
		return err
	}
	e.logger.Error("session write failed", "op", "login", "err", err)
	return opError("login", ErrStoreUnavailable, "")
}

func (e *Engine) getSessionToken(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Session.OperationTimeout)
	defer cancel()
	return e.sessionStore.Get(ctx, sessionID)
}

func (e *Engine) deleteSession(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Session.OperationTimeout)
	defer cancel()

	existed, err := e.sessionStore.Delete(ctx, sessionID)
	if err != nil {
		e.logger.Error("session delete failed", "op", "logout", "err", err)
		return false, opError("logout", ErrStoreUnavailable, "")
	}
	return existed, nil
}

func (e *Engine) recordLogin(ctx context.Context, username string, at time.Time) error {
	err := e.users.UpdateLastLogin(ctx, userstore.NormalizeEmail(username), at)
	if errors.Is(err, userstore.ErrNotFound) {
		// The issuer owns credentials; not every username is a local user.
		return nil
	}
	return err
}

func (e *Engine) checkLoginRate(ctx context.Context, username, ip string) error {
	return mapRateError(e.rateLimiter.CheckLogin(ctx, username, ip))
}

func (e *Engine) incrementLoginRate(ctx context.Context, username, ip string) error {
	return mapRateError(e.rateLimiter.IncrementLogin(ctx, username, ip))
}

func (e *Engine) resetLoginRate(ctx context.Context, username, ip string) error {
	return e.rateLimiter.ResetLogin(ctx, username, ip)
}

func mapRateError(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return opError("login", ErrLoginRateLimited, "")
	}
	return err
}

func (e *Engine) observeValidateLatency(d time.Duration) {
	if e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, d)
	}
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn(msg, args...)
}

func (e *Engine) emitFlowAudit(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string) {
	e.emitAudit(ctx, event, success, userID, err, metadata)
}

func isPasswordPolicy(err error) bool {
	return errors.Is(err, password.ErrTooLong) || errors.Is(err, password.ErrEmpty)
}
