package sessiongate

import (
	"github.com/skillx/sessiongate/internal/flows"
	"github.com/skillx/sessiongate/session"
)

func (e *Engine) initFlowDeps() {
	deps := flows.Deps{
		Login:    e.loginDeps(),
		Validate: e.validateDeps(),
		Logout:   e.logoutDeps(),
		Register: e.registerDeps(),
	}
	e.flows = flows.New(deps)
}

func (e *Engine) loginDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		ClientIPFromContext: clientIPFromContext,
		IssueToken:          e.issueToken,
		NewSessionID:        e.newSessionID,
		SaveSession:         e.saveSession,
		MetricInc:           func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:           e.emitFlowAudit,
		Warn:                e.warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:        int(MetricLoginSuccess),
			LoginFailure:        int(MetricLoginFailure),
			LoginRateLimited:    int(MetricLoginRateLimited),
			IssuerUnavailable:   int(MetricIssuerUnavailable),
			SessionCreated:      int(MetricSessionCreated),
			SessionCreateFailed: int(MetricSessionCreateFailed),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			MissingCredentials: ErrMissingCredentials,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
			StoreUnavailable:   ErrStoreUnavailable,
			SessionIDTaken:     session.ErrIDCollision,
		},
	}
	if e.rateLimiter != nil {
		deps.CheckLoginRate = e.checkLoginRate
		deps.IncrementLoginRate = e.incrementLoginRate
		deps.ResetLoginRate = e.resetLoginRate
	}
	if e.config.Session.RecordLastLogin {
		deps.RecordLogin = e.recordLogin
	}
	return deps
}

func (e *Engine) validateDeps() flows.ValidateDeps {
	deps := flows.ValidateDeps{
		ValidID:         session.ValidID,
		GetToken:        e.getSessionToken,
		VerifyToken:     e.issuer.VerifyToken,
		MetricInc:       func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:       e.emitFlowAudit,
		Warn:            e.warn,
		SessionNotFound: session.ErrNotFound,
		Metrics: flows.ValidateMetrics{
			ValidateSuccess:    int(MetricValidateSuccess),
			ValidateFailure:    int(MetricValidateFailure),
			ValidateFailClosed: int(MetricValidateFailClosed),
		},
		Events: flows.ValidateEvents{
			FailClosed: auditEventValidateFailClosed,
		},
	}
	if e.metrics.LatencyEnabled() {
		deps.ObserveLatency = e.observeValidateLatency
	}
	return deps
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		ValidID:       session.ValidID,
		DeleteSession: e.deleteSession,
		MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:     e.emitFlowAudit,
		LogoutEvent:   auditEventLogout,
		Metrics: flows.LogoutMetrics{
			Logout: int(MetricLogout),
		},
		Errors: flows.LogoutErrors{
			MissingSessionID: ErrMissingSessionID,
			EngineNotReady:   ErrEngineNotReady,
		},
	}
}

func (e *Engine) registerDeps() flows.RegisterDeps {
	return flows.RegisterDeps{
		Users:            e.users,
		HashPassword:     e.passwordHash.Hash,
		IsPasswordPolicy: isPasswordPolicy,
		MetricInc:        func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:        e.emitFlowAudit,
		Warn:             e.warn,
		Metrics: flows.RegisterMetrics{
			RegisterSuccess:   int(MetricRegisterSuccess),
			RegisterDuplicate: int(MetricRegisterDuplicate),
			RegisterFailure:   int(MetricRegisterFailure),
		},
		Events: flows.RegisterEvents{
			RegisterSuccess:   auditEventRegisterSuccess,
			RegisterFailure:   auditEventRegisterFailure,
			RegisterDuplicate: auditEventRegisterDuplicate,
		},
		Errors: flows.RegisterErrors{
			EngineNotReady:   ErrEngineNotReady,
			MissingFields:    ErrMissingFields,
			EmailTaken:       ErrEmailTaken,
			PasswordPolicy:   ErrPasswordPolicy,
			StoreUnavailable: ErrStoreUnavailable,
			Internal:         ErrInternal,
		},
	}
}
