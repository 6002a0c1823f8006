package sessiongate

import (
	"context"

	"github.com/skillx/sessiongate/issuer"
)

// TokenIssuer is the slice of issuer.Client the Engine depends on. Tests
// may substitute their own implementation.
type TokenIssuer interface {
	IssueToken(ctx context.Context, username, password string) (issuer.TokenPair, error)
	VerifyToken(ctx context.Context, token string) (bool, error)
}

// LoginResult is returned by [Engine.Login].
//
//	Docs: docs/session.md
type LoginResult struct {
	SessionID string
}

// ValidateResult is returned by [Engine.Validate]. Valid is false for every
// failure, including backend outages.
type ValidateResult struct {
	Valid bool
}

// RegisterRequest carries registration input. FirstName and LastName are
// optional; blank values are stored as NULL.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	UserID int64
}
