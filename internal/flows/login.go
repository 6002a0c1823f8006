package flows

import (
	"context"
	"errors"
	"time"
)

// maxSessionIDAttempts bounds retries when a generated id is already taken.
const maxSessionIDAttempts = 3

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess        int
	LoginFailure        int
	LoginRateLimited    int
	IssuerUnavailable   int
	SessionCreated      int
	SessionCreateFailed int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	MissingCredentials error
	InvalidCredentials error
	LoginRateLimited   error
	StoreUnavailable   error
	// SessionIDTaken is what SaveSession returns when the key already exists.
	SessionIDTaken error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	// IssueToken returns the access token or an error already classified
	// into a host sentinel.
	IssueToken   func(ctx context.Context, username, password string) (string, error)
	NewSessionID func() (string, error)
	SaveSession  func(ctx context.Context, sessionID, accessToken string) error
	// RecordLogin is optional and best effort.
	RecordLogin func(ctx context.Context, username string, at time.Time) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin trades credentials for an access token and binds it to a new
// session id. The issuer call always precedes the store write, and nothing
// is written when the issuer does not answer with a usable token.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.IssueToken == nil || deps.NewSessionID == nil || deps.SaveSession == nil {
		return "", deps.Errors.EngineNotReady
	}

	if username == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.MissingCredentials, nil)
		return "", deps.Errors.MissingCredentials
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, username, ip); err != nil {
			if errors.Is(err, deps.Errors.LoginRateLimited) {
				deps.MetricInc(deps.Metrics.LoginRateLimited)
				deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", err, nil)
				return "", err
			}
			// The limiter is advisory; an outage must not block logins.
			deps.Warn("login rate check failed", "err", err)
		}
	}

	access, err := deps.IssueToken(ctx, username, password)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		if deps.IncrementLoginRate != nil && errors.Is(err, deps.Errors.InvalidCredentials) {
			if rerr := deps.IncrementLoginRate(ctx, username, ip); rerr != nil && !errors.Is(rerr, deps.Errors.LoginRateLimited) {
				deps.Warn("login rate increment failed", "err", rerr)
			}
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, nil)
		return "", err
	}

	sessionID, err := saveWithFreshID(ctx, access, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.SessionCreateFailed)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, nil)
		return "", err
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, username, ip); err != nil {
			deps.Warn("login rate reset failed", "err", err)
		}
	}
	if deps.RecordLogin != nil {
		if err := deps.RecordLogin(ctx, username, deps.Now().UTC()); err != nil {
			deps.Warn("record last login failed", "err", err)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, "", nil, nil)
	return sessionID, nil
}

func saveWithFreshID(ctx context.Context, access string, deps LoginDeps) (string, error) {
	for attempt := 0; attempt < maxSessionIDAttempts; attempt++ {
		sessionID, err := deps.NewSessionID()
		if err != nil {
			return "", err
		}
		err = deps.SaveSession(ctx, sessionID, access)
		if err == nil {
			return sessionID, nil
		}
		if deps.Errors.SessionIDTaken != nil && errors.Is(err, deps.Errors.SessionIDTaken) {
			deps.Warn("session id collision, retrying", "attempt", attempt+1)
			continue
		}
		return "", err
	}
	return "", deps.Errors.StoreUnavailable
}
