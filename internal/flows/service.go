package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.GetToken != nil
}

func (s Service) Login(ctx context.Context, username, password string) (string, error) {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Validate(ctx context.Context, sessionID string) ValidateResult {
	return RunValidate(ctx, sessionID, s.deps.Validate)
}

func (s Service) Logout(ctx context.Context, sessionID string) error {
	return RunLogout(ctx, sessionID, s.deps.Logout)
}

func (s Service) Register(ctx context.Context, in RegisterInput) (int64, error) {
	return RunRegister(ctx, in, s.deps.Register)
}
