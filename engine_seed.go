package sessiongate

import (
	"context"
	"errors"

	"github.com/skillx/sessiongate/userstore"
)

// AdminSeed is the development account created by SeedUser when the
// composition root asks for it.
var AdminSeed = RegisterRequest{
	Email:     "admin@example.com",
	Password:  "password",
	FirstName: "Admin",
	LastName:  "User",
}

// SeedUser registers req unless its email already exists. It reports
// whether a user was created. Running it twice, or concurrently, is safe.
func (e *Engine) SeedUser(ctx context.Context, req RegisterRequest) (bool, error) {
	if !e.ready() {
		return false, opError("seed", ErrEngineNotReady, "")
	}

	exists, err := e.users.EmailExists(ctx, userstore.NormalizeEmail(req.Email))
	if err != nil {
		e.logger.Error("seed pre-check failed", "op", "seed", "err", err)
		return false, opError("seed", ErrStoreUnavailable, "")
	}
	if exists {
		return false, nil
	}

	res, err := e.Register(ctx, req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	e.logger.Info("seeded user", "op", "seed", "user_id", res.UserID)
	return true, nil
}
