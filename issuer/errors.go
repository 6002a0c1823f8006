package issuer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable wraps transport failures, timeouts and 5xx answers.
	ErrUnavailable = errors.New("token issuer unavailable")
	// ErrMalformedResponse is returned when a success response lacks the
	// token pair or cannot be decoded.
	ErrMalformedResponse = errors.New("malformed token issuer response")
)

// RejectedError is returned when the issuer answers a token request with a
// 4xx status. Detail carries the issuer's message when it sent one.
type RejectedError struct {
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("token request rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("token request rejected (status %d): %s", e.Status, e.Detail)
}

// IsRejected reports whether err is a RejectedError and returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
