package flows

import "context"

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout int
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	MissingSessionID error
	EngineNotReady   error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	ValidID func(string) bool
	// DeleteSession reports whether a key existed.
	DeleteSession func(ctx context.Context, sessionID string) (bool, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	LogoutEvent string
	Metrics     LogoutMetrics
	Errors      LogoutErrors
}

// RunLogout revokes sessionID. Unknown and malformed ids are not errors:
// there is nothing to revoke, so the call succeeds without touching the
// store for malformed ids.
func RunLogout(ctx context.Context, sessionID string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.DeleteSession == nil {
		return deps.Errors.EngineNotReady
	}
	if sessionID == "" {
		return deps.Errors.MissingSessionID
	}
	if deps.ValidID != nil && !deps.ValidID(sessionID) {
		return nil
	}

	existed, err := deps.DeleteSession(ctx, sessionID)
	if err != nil {
		deps.EmitAudit(ctx, deps.LogoutEvent, false, "", err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.LogoutEvent, true, "", nil, func() map[string]string {
		if existed {
			return map[string]string{"existed": "true"}
		}
		return map[string]string{"existed": "false"}
	})
	return nil
}
