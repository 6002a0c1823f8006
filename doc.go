// Package sessiongate is a session-management layer in front of an external
// token issuer.
//
// Login trades a username and password for an access token at the issuer
// and binds that token to an opaque session id kept in Redis for five hours.
// Validate answers whether a session id is still good by reading the token
// back and asking the issuer to verify it; it fails closed. Logout deletes
// the session. Register creates local users with bcrypt-hashed passwords and
// unique email addresses.
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Engine], [Builder],
// [Config], the error sentinels and value types. Flow orchestration and
// rate limiting live under internal/. Every backend handle (Redis client,
// user store, issuer client, audit sink, logger) is injected through
// [Builder]; the package holds no globals.
//
// # What this package must NOT do
//
//   - Log or audit tokens, passwords, usernames or session ids.
//   - Verify tokens locally; the issuer is the only authority.
//   - Extend a session's lifetime on use.
package sessiongate
