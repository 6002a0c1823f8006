package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/skillx/sessiongate/internal/appconfig"
	"github.com/skillx/sessiongate/issuer/issuertest"
)

func testAppConfig(t *testing.T, extra map[string]string) (appconfig.Config, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	iss := issuertest.New(
		issuertest.WithUser("admin@example.com", "password"),
		issuertest.WithStaticTokens("tok123", "ref456"),
	)
	t.Cleanup(iss.Close)

	vars := map[string]string{
		"SESSIONGATE_REDIS_URL":  "redis://" + mr.Addr() + "/0",
		"SESSIONGATE_ISSUER_URL": iss.URL,
		"SESSIONGATE_HTTP_ADDR":  "127.0.0.1:0",
	}
	for k, v := range extra {
		vars[k] = v
	}
	cfg, err := appconfig.LoadFrom(vars)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg, mr
}

func TestAppServesLoginValidateAndMetrics(t *testing.T) {
	cfg, mr := testAppConfig(t, map[string]string{"SESSIONGATE_SEED_ADMIN": "true"})

	a, err := newApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	form := url.Values{"username": {"admin@example.com"}, "password": {"password"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, _ := mr.Get("session:" + body.SessionID); got != "tok123" {
		t.Fatalf("expected stored access token, got %q", got)
	}
	if ttl := mr.TTL("session:" + body.SessionID); ttl != 18000*time.Second {
		t.Fatalf("expected ttl 18000s, got %v", ttl)
	}

	rec = httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sessiongate_login_success_total 1") {
		t.Fatalf("metrics: got %d\n%s", rec.Code, rec.Body.String())
	}

	form = url.Values{"email": {"admin@example.com"}, "password": {"other"}}
	req = httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("seeded admin should make register conflict, got %d", rec.Code)
	}
}

func TestAppRejectsInvalidConfig(t *testing.T) {
	cfg, _ := testAppConfig(t, map[string]string{"SESSIONGATE_USER_STORE": "postgres"})
	if _, err := newApp(context.Background(), cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("expected error for postgres without a database url")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg, _ := testAppConfig(t, nil)
	a, err := newApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRequestLoggingOmitsQueryAndBody(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), log)

	req := httptest.NewRequest(http.MethodPost, "/login?password=hunter2", strings.NewReader("password=hunter2"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked into request log: %s", out)
	}
	if !strings.Contains(out, `"status":418`) {
		t.Fatalf("expected status in log: %s", out)
	}
}
