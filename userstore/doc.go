// Package userstore defines the user record and the persistence contract the
// registration gate relies on, plus an in-memory implementation.
//
// Email addresses are unique across the store. Implementations must enforce
// that with a constraint checked at insert time and report violations as
// [ErrEmailConflict]; a prior [Store.EmailExists] call is only an early exit.
//
// Backends live in subpackages: postgres (pgx) and sqlite (modernc).
package userstore
