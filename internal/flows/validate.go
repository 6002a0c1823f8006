package flows

import (
	"context"
	"errors"
	"time"
)

// ValidateFailureKind classifies why a session was judged invalid.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureEmptyID
	ValidateFailureMalformedID
	ValidateFailureSessionNotFound
	ValidateFailureStoreUnavailable
	ValidateFailureTokenRejected
	ValidateFailureIssuerUnavailable
)

func (k ValidateFailureKind) String() string {
	switch k {
	case ValidateFailureNone:
		return "none"
	case ValidateFailureEmptyID:
		return "empty_id"
	case ValidateFailureMalformedID:
		return "malformed_id"
	case ValidateFailureSessionNotFound:
		return "session_not_found"
	case ValidateFailureStoreUnavailable:
		return "store_unavailable"
	case ValidateFailureTokenRejected:
		return "token_rejected"
	case ValidateFailureIssuerUnavailable:
		return "issuer_unavailable"
	default:
		return "unknown"
	}
}

// FailClosed reports whether the failure came from a backend error rather
// than from the session itself.
func (k ValidateFailureKind) FailClosed() bool {
	return k == ValidateFailureStoreUnavailable || k == ValidateFailureIssuerUnavailable
}

// ValidateResult is Valid or a classified failure. Err is set only for
// fail-closed outcomes and is never surfaced to callers of the Engine.
type ValidateResult struct {
	Valid   bool
	Failure ValidateFailureKind
	Err     error
}

// ValidateMetrics carries metric IDs needed by the validate flow.
type ValidateMetrics struct {
	ValidateSuccess    int
	ValidateFailure    int
	ValidateFailClosed int
}

// ValidateEvents carries audit event names used by the validate flow.
type ValidateEvents struct {
	FailClosed string
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	ValidID func(string) bool
	// GetToken returns the access token bound to a session id, or an error
	// matching SessionNotFound when the key is absent.
	GetToken    func(ctx context.Context, sessionID string) (string, error)
	VerifyToken func(ctx context.Context, token string) (bool, error)

	Now            func() time.Time
	ObserveLatency func(time.Duration)
	MetricInc      func(int)
	EmitAudit      AuditFunc
	Warn           func(string, ...any)

	SessionNotFound error

	Metrics ValidateMetrics
	Events  ValidateEvents
}

// RunValidate decides whether sessionID is currently valid. It is
// read-only: the store is only read and the key's TTL is untouched. Every
// error yields an invalid result.
func RunValidate(ctx context.Context, sessionID string, deps ValidateDeps) ValidateResult {
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

	start := deps.Now()
	res := validate(ctx, sessionID, deps)
	if deps.ObserveLatency != nil {
		deps.ObserveLatency(deps.Now().Sub(start))
	}

	if res.Valid {
		deps.MetricInc(deps.Metrics.ValidateSuccess)
		return res
	}

	deps.MetricInc(deps.Metrics.ValidateFailure)
	if res.Failure.FailClosed() {
		deps.MetricInc(deps.Metrics.ValidateFailClosed)
		deps.Warn("validate failed closed", "reason", res.Failure.String(), "err", res.Err)
		deps.EmitAudit(ctx, deps.Events.FailClosed, false, "", res.Err, func() map[string]string {
			return map[string]string{"reason": res.Failure.String()}
		})
	}
	return res
}

func validate(ctx context.Context, sessionID string, deps ValidateDeps) ValidateResult {
	if sessionID == "" {
		return ValidateResult{Failure: ValidateFailureEmptyID}
	}
	if deps.ValidID != nil && !deps.ValidID(sessionID) {
		return ValidateResult{Failure: ValidateFailureMalformedID}
	}
	if deps.GetToken == nil || deps.VerifyToken == nil {
		return ValidateResult{Failure: ValidateFailureStoreUnavailable, Err: errors.New("validate dependencies missing")}
	}

	token, err := deps.GetToken(ctx, sessionID)
	if err != nil {
		if deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound) {
			return ValidateResult{Failure: ValidateFailureSessionNotFound}
		}
		return ValidateResult{Failure: ValidateFailureStoreUnavailable, Err: err}
	}
	if token == "" {
		return ValidateResult{Failure: ValidateFailureSessionNotFound}
	}

	ok, err := deps.VerifyToken(ctx, token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureIssuerUnavailable, Err: err}
	}
	if !ok {
		return ValidateResult{Failure: ValidateFailureTokenRejected}
	}
	return ValidateResult{Valid: true}
}
