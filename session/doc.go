// Package session provides the Redis-backed session store.
//
// Each session is a single string key, <prefix><sessionID>, holding the
// access token issued at login. The TTL is fixed when the key is written and
// enforced by Redis; reads never refresh it.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and session id generation. It
// does NOT contact the token issuer or decide whether a session is valid;
// that belongs to the Engine.
//
// # What this package must NOT do
//
//   - Import sessiongate or issuer (no upward imports).
//   - Interpret or log access tokens.
package session
