// Package issuer is the HTTP client for the external token issuer.
//
// The issuer exposes two JSON endpoints: one trades a username and password
// for an access/refresh token pair, the other answers whether a token is
// still accepted. The client never inspects tokens itself; the issuer is the
// only authority on their validity.
//
// Failures are classified so callers can tell rejected credentials
// ([RejectedError]) apart from an unreachable issuer ([ErrUnavailable]) and
// from a response that broke the contract ([ErrMalformedResponse]).
package issuer
