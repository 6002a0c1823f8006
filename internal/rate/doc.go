// Package rate provides a Redis-backed fixed-window limiter for login
// attempts.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:login:u:  per username (hashed, never stored in clear)
//   - rl:login:ip: per client IP
//
// # What this package must NOT do
//
//   - Decide what a failed attempt is (the login flow does).
//   - Be imported outside the sessiongate module.
package rate
