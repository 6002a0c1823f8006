// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunValidate, RunLogout, RunRegister) accepts a
// typed dependency struct and returns results without side-effects beyond
// those dependencies. The Engine builds the dependency structs once at Build
// time and delegates to the flows, which keeps it thin and lets every branch
// be tested with plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, the token issuer, the
// user store, the rate limiter, audit and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root sessiongate package (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency functions.
package flows
