package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the lowest bcrypt cost accepted by NewBcrypt.
	MinCost = 12
	// MaxCost mirrors bcrypt.MaxCost.
	MaxCost = bcrypt.MaxCost
)

var (
	// ErrTooLong is returned for passwords bcrypt cannot represent (over 72 bytes).
	ErrTooLong = errors.New("password exceeds 72 bytes")
	// ErrEmpty is returned when hashing an empty password.
	ErrEmpty = errors.New("password is empty")
)

// Config holds bcrypt tuning.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies passwords. It is stateless and safe for
// concurrent use.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates cfg and returns a hasher. Costs below MinCost or above
// bcrypt.MaxCost are rejected.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	if cfg.Cost < MinCost {
		return nil, fmt.Errorf("bcrypt cost must be >= %d", MinCost)
	}
	if cfg.Cost > MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be <= %d", MaxCost)
	}
	return &Bcrypt{cost: cfg.Cost}, nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash returns the bcrypt encoding of password. Raw bytes are hashed
// exactly as provided.
func (b *Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmpty
	}
	if len(password) > 72 {
		return "", ErrTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password matches encodedHash. A mismatch is not an
// error; a hash that cannot be parsed is.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// NeedsUpgrade reports whether encodedHash was produced with a lower cost
// than the hasher's.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}
