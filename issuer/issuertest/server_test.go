package issuertest

import (
	"testing"
	"time"
)

func TestMinterRoundTrip(t *testing.T) {
	m, err := newMinter([]byte("secret"), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("newMinter failed: %v", err)
	}

	tok, err := m.mint("alice", kindAccess)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	claims, err := m.parse(tok)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "alice" || claims.Kind != kindAccess || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestMinterRejectsExpiredToken(t *testing.T) {
	m, err := newMinter([]byte("secret"), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("newMinter failed: %v", err)
	}
	base := time.Now()
	m.now = func() time.Time { return base }

	tok, err := m.mint("alice", kindAccess)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.parse(tok); err == nil {
		t.Fatal("expected expired token to fail parsing")
	}
}

func TestMinterRejectsForeignKey(t *testing.T) {
	a, _ := newMinter([]byte("key-a"), time.Minute, time.Hour)
	b, _ := newMinter([]byte("key-b"), time.Minute, time.Hour)

	tok, err := a.mint("alice", kindRefresh)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := b.parse(tok); err == nil {
		t.Fatal("expected token signed with another key to fail")
	}
}

func TestServerAcceptsStaticTokensOnlyAfterIssue(t *testing.T) {
	srv := New(WithUser("u", "p"), WithStaticTokens("tok123", "ref456"))
	defer srv.Close()

	if srv.accepts("tok123") {
		t.Fatal("static token must not verify before it was issued")
	}
}
