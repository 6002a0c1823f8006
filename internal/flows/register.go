package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/skillx/sessiongate/userstore"
)

// RegisterInput is the flow-local registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	RegisterFailure   int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess   string
	RegisterFailure   string
	RegisterDuplicate string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady   error
	MissingFields    error
	EmailTaken       error
	PasswordPolicy   error
	StoreUnavailable error
	Internal         error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	Users        userstore.Store
	HashPassword func(string) (string, error)
	// IsPasswordPolicy reports whether a HashPassword error is the caller's
	// fault rather than an internal failure.
	IsPasswordPolicy func(error) bool
	Now              func() time.Time

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates a user. The EmailExists pre-check is an early exit
// only; the store's unique constraint decides races, so two concurrent
// registrations for one email yield exactly one user.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (int64, error) {
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
	if deps.IsPasswordPolicy == nil {
		deps.IsPasswordPolicy = func(error) bool { return false }
	}
	if deps.Users == nil || deps.HashPassword == nil {
		return 0, deps.Errors.EngineNotReady
	}

	email := userstore.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return 0, failRegister(ctx, deps, deps.Errors.MissingFields)
	}

	exists, err := deps.Users.EmailExists(ctx, email)
	if err != nil {
		deps.Warn("email pre-check failed", "err", err)
		return 0, failRegister(ctx, deps, deps.Errors.StoreUnavailable)
	}
	if exists {
		return 0, duplicateRegister(ctx, deps)
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		if deps.IsPasswordPolicy(err) {
			return 0, failRegister(ctx, deps, deps.Errors.PasswordPolicy)
		}
		deps.Warn("password hash failed", "err", err)
		return 0, failRegister(ctx, deps, deps.Errors.Internal)
	}

	user, err := deps.Users.CreateUser(ctx, userstore.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		FirstName:    userstore.OptionalString(strings.TrimSpace(in.FirstName)),
		LastName:     userstore.OptionalString(strings.TrimSpace(in.LastName)),
		Now:          deps.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrEmailConflict):
			return 0, duplicateRegister(ctx, deps)
		case errors.Is(err, userstore.ErrInvalidInput):
			return 0, failRegister(ctx, deps, deps.Errors.MissingFields)
		default:
			deps.Warn("create user failed", "err", err)
			return 0, failRegister(ctx, deps, deps.Errors.StoreUnavailable)
		}
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, strconv.FormatInt(user.ID, 10), nil, nil)
	return user.ID, nil
}

func duplicateRegister(ctx context.Context, deps RegisterDeps) error {
	deps.MetricInc(deps.Metrics.RegisterDuplicate)
	deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", deps.Errors.EmailTaken, nil)
	return deps.Errors.EmailTaken
}

func failRegister(ctx context.Context, deps RegisterDeps, err error) error {
	deps.MetricInc(deps.Metrics.RegisterFailure)
	deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, nil)
	return err
}
