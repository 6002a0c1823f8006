// Package httpapi exposes the session gate over HTTP.
//
// Routes:
//
//	POST /login     username, password        -> {success, sessionId} or {success:false, error}
//	POST /register  email, password, firstName, lastName -> {success, userId}
//	POST /validate  sessionId | Bearer | cookie -> {valid}
//	POST /logout    sessionId | Bearer | cookie -> {success}
//	GET  /healthz
//	GET  /metrics   when a metrics handler is configured
//
// Request bodies are form encoded; JSON bodies are accepted as well. Error
// strings are the user-facing messages of sessiongate.UserMessage and never
// include internal detail.
package httpapi
