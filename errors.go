package sessiongate

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when login is attempted without a
	// username or password.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrMissingSessionID is returned when logout is called without a
	// session id. It matches ErrMissingCredentials under errors.Is.
	ErrMissingSessionID = fmt.Errorf("%w: session id", ErrMissingCredentials)
	// ErrInvalidCredentials is returned when the issuer rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedIssuerResponse is returned when the issuer accepts the
	// credentials but the token pair is missing or unreadable.
	ErrMalformedIssuerResponse = errors.New("malformed issuer response")
	// ErrIssuerUnavailable is returned when the issuer cannot be reached,
	// times out, or answers with a server error.
	ErrIssuerUnavailable = errors.New("issuer unavailable")
	// ErrStoreUnavailable is returned when the session or user store fails.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMissingFields is returned when registration lacks an email or password.
	ErrMissingFields = errors.New("missing required fields")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicy is returned when a password cannot be hashed as given.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited is returned when the login limiter denies the attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInternal is returned for failures that match no other kind.
	ErrInternal = errors.New("internal error")
)

// AuthError is returned by Engine operations. Kind is always one of the
// sentinels above, so errors.Is works against it. Detail carries text from
// the issuer when there is any; it never contains secrets.
type AuthError struct {
	Op     string
	Kind   error
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

func (e *AuthError) Unwrap() error { return e.Kind }

// Message returns text suitable for an end user.
func (e *AuthError) Message() string {
	if e.Detail != "" && errors.Is(e.Kind, ErrInvalidCredentials) {
		return e.Detail
	}
	return messageFor(e.Kind)
}

// UserMessage returns the end-user text for any error returned by the
// Engine, falling back to a generic message.
func UserMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return messageFor(err)
}

func messageFor(kind error) string {
	switch {
	case errors.Is(kind, ErrMissingSessionID):
		return "Session id is required"
	case errors.Is(kind, ErrMissingCredentials):
		return "Username and password are required"
	case errors.Is(kind, ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(kind, ErrMalformedIssuerResponse):
		return "Token not received from backend"
	case errors.Is(kind, ErrIssuerUnavailable):
		return "Authentication service unavailable"
	case errors.Is(kind, ErrMissingFields):
		return "Email and password are required"
	case errors.Is(kind, ErrEmailTaken):
		return "Email already registered"
	case errors.Is(kind, ErrPasswordPolicy):
		return "Password does not meet requirements"
	case errors.Is(kind, ErrLoginRateLimited):
		return "Too many login attempts"
	case errors.Is(kind, ErrStoreUnavailable):
		return "Service temporarily unavailable"
	default:
		return "Internal error"
	}
}

func opError(op string, kind error, detail string) error {
	return &AuthError{Op: op, Kind: kind, Detail: detail}
}
