// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Hashes are standard modular-crypt bcrypt strings ($2a$<cost>$...), which
// makes them interchangeable with other bcrypt implementations that share
// the same user table.
//
// [Bcrypt.NeedsUpgrade] reports hashes produced with a lower cost than the
// one configured so callers can re-hash them.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Field presence rules are
// enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other sessiongate package.
//   - Log plaintext passwords.
package password
