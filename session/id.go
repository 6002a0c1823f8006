package session

import (
	"github.com/google/uuid"
)

// NewID returns a random (version 4) UUID string drawn from crypto/rand.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidID reports whether id has the canonical 36-character UUID form.
// Identifiers that fail this check can never have been issued by NewID.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
