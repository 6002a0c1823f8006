// Package middleware adapts sessiongate.Engine validation to net/http.
//
// [RequireSession] reads the session id from an "Authorization: Bearer"
// header or the session_id cookie, calls Engine.Validate, and stores the
// id in the request context for [SessionIDFromContext].
//
// This package translates HTTP semantics into Engine calls. It does not
// talk to Redis or the token issuer itself.
package middleware
