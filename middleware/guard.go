package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/skillx/sessiongate"
)

// SessionCookieName is the cookie consulted when no bearer header is sent.
const SessionCookieName = "session_id"

type sessionIDContextKey struct{}

// SessionIDFromContext returns the session id stored by RequireSession.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey{}).(string)
	return id, ok && id != ""
}

// RequireSession rejects requests whose session id does not validate. The
// id is read from an "Authorization: Bearer" header, falling back to the
// session_id cookie. Backend failures reject the request like an invalid
// session would.
func RequireSession(engine *sessiongate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sessionID, ok := SessionIDFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithRequestContext(r)
			if !engine.Validate(ctx, sessionID).Valid {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, sessionIDContextKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromRequest extracts a session id from the bearer header or the
// session cookie, in that order.
func SessionIDFromRequest(r *http.Request) (string, bool) {
	if id, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return id, true
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// WithRequestContext attaches the caller's IP to the request context for
// throttling and audit.
func WithRequestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return sessiongate.WithClientIP(r.Context(), host)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
