package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/skillx/sessiongate/userstore"
)

var (
	errNotReady      = errors.New("not ready")
	errMissing       = errors.New("missing")
	errInvalid       = errors.New("invalid")
	errLimited       = errors.New("limited")
	errStore         = errors.New("store")
	errTaken         = errors.New("taken")
	errCollision     = errors.New("collision")
	errNotFound      = errors.New("not found")
	errPolicy        = errors.New("policy")
	errInternal      = errors.New("internal")
	errMissingFields = errors.New("missing fields")
)

func loginTestDeps(calls *[]string) LoginDeps {
	ids := []string{"id-1", "id-2", "id-3"}
	return LoginDeps{
		IssueToken: func(ctx context.Context, username, password string) (string, error) {
			*calls = append(*calls, "issue")
			if password != "good" {
				return "", errInvalid
			}
			return "tok", nil
		},
		NewSessionID: func() (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		},
		SaveSession: func(ctx context.Context, id, token string) error {
			*calls = append(*calls, "save:"+id)
			return nil
		},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			MissingCredentials: errMissing,
			InvalidCredentials: errInvalid,
			LoginRateLimited:   errLimited,
			StoreUnavailable:   errStore,
			SessionIDTaken:     errCollision,
		},
	}
}

func TestRunLoginIssuesBeforeSaving(t *testing.T) {
	var calls []string
	id, err := RunLogin(context.Background(), "u", "good", loginTestDeps(&calls))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id != "id-1" {
		t.Fatalf("expected id-1, got %q", id)
	}
	if len(calls) != 2 || calls[0] != "issue" || calls[1] != "save:id-1" {
		t.Fatalf("unexpected call order %v", calls)
	}
}

func TestRunLoginRejectedNeverSaves(t *testing.T) {
	var calls []string
	_, err := RunLogin(context.Background(), "u", "bad", loginTestDeps(&calls))
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected only the issuer call, got %v", calls)
	}
}

func TestRunLoginMissingCredentialsSkipsEverything(t *testing.T) {
	var calls []string
	_, err := RunLogin(context.Background(), "", "good", loginTestDeps(&calls))
	if !errors.Is(err, errMissing) {
		t.Fatalf("expected errMissing, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no calls, got %v", calls)
	}
}

func TestRunLoginRetriesOnIDCollision(t *testing.T) {
	var calls []string
	deps := loginTestDeps(&calls)
	deps.SaveSession = func(ctx context.Context, id, token string) error {
		calls = append(calls, "save:"+id)
		if id == "id-1" {
			return errCollision
		}
		return nil
	}

	id, err := RunLogin(context.Background(), "u", "good", deps)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id != "id-2" {
		t.Fatalf("expected retry to use id-2, got %q", id)
	}
}

func TestRunLoginRateLimited(t *testing.T) {
	var calls []string
	deps := loginTestDeps(&calls)
	deps.CheckLoginRate = func(context.Context, string, string) error { return errLimited }

	if _, err := RunLogin(context.Background(), "u", "good", deps); !errors.Is(err, errLimited) {
		t.Fatalf("expected errLimited, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected issuer to be skipped, got %v", calls)
	}
}

func TestRunLoginLimiterOutageIsAdvisory(t *testing.T) {
	var calls []string
	deps := loginTestDeps(&calls)
	deps.CheckLoginRate = func(context.Context, string, string) error { return errors.New("redis down") }

	if _, err := RunLogin(context.Background(), "u", "good", deps); err != nil {
		t.Fatalf("expected login to proceed, got %v", err)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	if _, err := RunLogin(context.Background(), "u", "p", LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}}); !errors.Is(err, errNotReady) {
		t.Fatalf("expected errNotReady, got %v", err)
	}
}

func TestRunValidateClassification(t *testing.T) {
	base := func() ValidateDeps {
		return ValidateDeps{
			ValidID: func(id string) bool { return id != "bad" },
			GetToken: func(ctx context.Context, id string) (string, error) {
				switch id {
				case "missing":
					return "", errNotFound
				case "down":
					return "", errStore
				case "revoked":
					return "revoked-token", nil
				case "verify-down":
					return "verify-down-token", nil
				}
				return "tok", nil
			},
			VerifyToken: func(ctx context.Context, token string) (bool, error) {
				switch token {
				case "revoked-token":
					return false, nil
				case "verify-down-token":
					return false, errors.New("dial tcp: refused")
				}
				return true, nil
			},
			SessionNotFound: errNotFound,
		}
	}

	cases := []struct {
		id      string
		valid   bool
		failure ValidateFailureKind
	}{
		{id: "", failure: ValidateFailureEmptyID},
		{id: "bad", failure: ValidateFailureMalformedID},
		{id: "missing", failure: ValidateFailureSessionNotFound},
		{id: "down", failure: ValidateFailureStoreUnavailable},
		{id: "revoked", failure: ValidateFailureTokenRejected},
		{id: "verify-down", failure: ValidateFailureIssuerUnavailable},
		{id: "ok", valid: true, failure: ValidateFailureNone},
	}
	for _, tc := range cases {
		res := RunValidate(context.Background(), tc.id, base())
		if res.Valid != tc.valid || res.Failure != tc.failure {
			t.Fatalf("%q: got valid=%v failure=%s, want valid=%v failure=%s", tc.id, res.Valid, res.Failure, tc.valid, tc.failure)
		}
		if res.Failure.FailClosed() != (res.Err != nil) {
			t.Fatalf("%q: fail-closed results must carry the cause", tc.id)
		}
	}
}

func TestRunValidateMissingDepsFailsClosed(t *testing.T) {
	if res := RunValidate(context.Background(), "id", ValidateDeps{}); res.Valid {
		t.Fatal("expected invalid result without dependencies")
	}
}

func TestRunLogout(t *testing.T) {
	var deleted []string
	deps := LogoutDeps{
		ValidID: func(id string) bool { return id != "bad" },
		DeleteSession: func(ctx context.Context, id string) (bool, error) {
			deleted = append(deleted, id)
			return false, nil
		},
		Errors: LogoutErrors{MissingSessionID: errMissing, EngineNotReady: errNotReady},
	}

	if err := RunLogout(context.Background(), "", deps); !errors.Is(err, errMissing) {
		t.Fatalf("expected errMissing, got %v", err)
	}
	if err := RunLogout(context.Background(), "bad", deps); err != nil {
		t.Fatalf("expected malformed id to be a no-op, got %v", err)
	}
	if err := RunLogout(context.Background(), "gone", deps); err != nil {
		t.Fatalf("expected unknown id to succeed, got %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "gone" {
		t.Fatalf("unexpected deletes %v", deleted)
	}
}

type conflictStore struct {
	userstore.Store
}

func (conflictStore) EmailExists(context.Context, string) (bool, error) { return false, nil }

func (conflictStore) CreateUser(context.Context, userstore.CreateUserInput) (userstore.User, error) {
	return userstore.User{}, userstore.ErrEmailConflict
}

func registerTestDeps(users userstore.Store) RegisterDeps {
	return RegisterDeps{
		Users:            users,
		HashPassword:     func(p string) (string, error) { return "hash:" + p, nil },
		IsPasswordPolicy: func(err error) bool { return errors.Is(err, errPolicy) },
		Errors: RegisterErrors{
			EngineNotReady:   errNotReady,
			MissingFields:    errMissingFields,
			EmailTaken:       errTaken,
			PasswordPolicy:   errPolicy,
			StoreUnavailable: errStore,
			Internal:         errInternal,
		},
	}
}

func TestRunRegisterConflictMapsToTaken(t *testing.T) {
	_, err := RunRegister(context.Background(), RegisterInput{Email: "a@example.com", Password: "pw"}, registerTestDeps(conflictStore{}))
	if !errors.Is(err, errTaken) {
		t.Fatalf("expected errTaken, got %v", err)
	}
}

func TestRunRegisterNormalisesEmail(t *testing.T) {
	mem := userstore.NewMemoryStore()
	id, err := RunRegister(context.Background(), RegisterInput{Email: " Bob@Example.COM ", Password: "pw"}, registerTestDeps(mem))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	u, err := mem.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.Email != "bob@example.com" || u.PasswordHash != "hash:pw" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestRunRegisterHashFailures(t *testing.T) {
	deps := registerTestDeps(userstore.NewMemoryStore())
	deps.HashPassword = func(string) (string, error) { return "", errPolicy }
	if _, err := RunRegister(context.Background(), RegisterInput{Email: "a@example.com", Password: "pw"}, deps); !errors.Is(err, errPolicy) {
		t.Fatalf("expected errPolicy, got %v", err)
	}

	deps.HashPassword = func(string) (string, error) { return "", errors.New("rng failure") }
	if _, err := RunRegister(context.Background(), RegisterInput{Email: "a@example.com", Password: "pw"}, deps); !errors.Is(err, errInternal) {
		t.Fatalf("expected errInternal, got %v", err)
	}
}
