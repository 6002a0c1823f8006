package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillx/sessiongate/userstore"
)

// Integration tests are opt-in and require SESSIONGATE_TEST_DATABASE_URL.

func TestPostgresStoreCreateAndLookup(t *testing.T) {
	s := mustNewTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	u, err := s.CreateUser(ctx, userstore.CreateUserInput{
		Email:        "admin@example.com",
		PasswordHash: "$2a$12$abc",
		FirstName:    userstore.OptionalString("Admin"),
		LastName:     userstore.OptionalString("User"),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 || !u.IsActive || u.IsVerified || u.LastLogin != nil {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := s.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID || got.FirstName == nil || *got.FirstName != "Admin" {
		t.Fatalf("unexpected lookup result: %+v", got)
	}

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.UpdateLastLogin(ctx, "admin@example.com", time.Now()); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	got, err = s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.LastLogin == nil {
		t.Fatal("expected last login to be set")
	}
}

func TestPostgresStoreConcurrentDuplicateEmail(t *testing.T) {
	s := mustNewTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(ctx, userstore.CreateUserInput{Email: "race@example.com", PasswordHash: "h"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, userstore.ErrEmailConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, successes, conflicts)
	}
}

func mustNewTestStore(t *testing.T) *Store {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("SESSIONGATE_TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: SESSIONGATE_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	if err := Ping(ctx, admin, 3*time.Second); err != nil {
		admin.Close()
		t.Skipf("integration test skipped: Postgres unreachable: %v", err)
	}

	var b [6]byte
	_, _ = rand.Read(b[:])
	schema := "sg_test_" + hex.EncodeToString(b[:])
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		admin.Close()
	})

	cfg := DefaultPoolConfig(raw)
	cfg.SearchPath = schema
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := NewStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}
