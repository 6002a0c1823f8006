// Package issuertest provides an in-process token issuer for tests and demos.
//
// The fixture speaks the same JSON contract as the real issuer: POST
// {username,password} to the token path for a {access,refresh} pair, POST
// {token} to the verify path for a 200 or 401. Tokens are real HS256 JWTs
// unless static tokens are configured.
package issuertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// TokenPath is the token-pair endpoint served by the fixture.
	TokenPath = "/token"
	// VerifyPath is the verification endpoint served by the fixture.
	VerifyPath = "/token/verify"
)

// Option configures a Server.
type Option func(*Server)

// WithUser registers a username/password pair the fixture will accept.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.users[username] = password
	}
}

// WithStaticTokens makes every successful token request return exactly
// access and refresh instead of freshly minted JWTs.
func WithStaticTokens(access, refresh string) Option {
	return func(s *Server) {
		s.staticAccess = access
		s.staticRefresh = refresh
	}
}

// WithAccessTTL sets the lifetime of minted access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithSecret fixes the HS256 signing key.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = append([]byte(nil), secret...)
	}
}

type forcedResponse struct {
	status int
	body   string
}

// Server is a running fixture issuer.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	users         map[string]string
	revoked       map[string]struct{}
	issuedStatic  map[string]struct{}
	staticAccess  string
	staticRefresh string
	forcedToken   *forcedResponse
	forcedVerify  int
	delay         time.Duration

	secret    []byte
	accessTTL time.Duration
	minter    *minter

	tokenCalls  atomic.Int64
	verifyCalls atomic.Int64
}

// New starts a fixture issuer. Call Close when done.
func New(opts ...Option) *Server {
	s := newUnstarted(opts...)
	s.Server = httptest.NewServer(s.routes())
	return s
}

// NewUnstartedHandler builds the fixture without listening, for callers
// that mount it on their own mux.
func NewUnstartedHandler(opts ...Option) (*Server, http.Handler) {
	s := newUnstarted(opts...)
	return s, s.routes()
}

func newUnstarted(opts ...Option) *Server {
	s := &Server{
		users:        make(map[string]string),
		revoked:      make(map[string]struct{}),
		issuedStatic: make(map[string]struct{}),
		accessTTL:    5 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	m, err := newMinter(s.secret, s.accessTTL, 24*time.Hour)
	if err != nil {
		panic("issuertest: " + err.Error())
	}
	s.minter = m
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+TokenPath, s.handleToken)
	mux.HandleFunc("POST "+VerifyPath, s.handleVerify)
	return mux
}

// AddUser registers or replaces a credential pair.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Revoke makes the issuer reject token on verification from now on.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = struct{}{}
}

// ForceTokenResponse makes every token request answer with status and
// body verbatim. A zero status restores normal behaviour.
func (s *Server) ForceTokenResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		s.forcedToken = nil
		return
	}
	s.forcedToken = &forcedResponse{status: status, body: body}
}

// ForceVerifyStatus makes every verify request answer with status. Zero
// restores normal behaviour.
func (s *Server) ForceVerifyStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedVerify = status
}

// SetDelay stalls every response by d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// TokenCalls returns how many token requests reached the fixture.
func (s *Server) TokenCalls() int64 { return s.tokenCalls.Load() }

// VerifyCalls returns how many verify requests reached the fixture.
func (s *Server) VerifyCalls() int64 { return s.verifyCalls.Load() }

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)
	s.stall(r)

	s.mu.Lock()
	forced := s.forcedToken
	s.mu.Unlock()
	if forced != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(forced.status)
		_, _ = w.Write([]byte(forced.body))
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request body."})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username and password are required."})
		return
	}

	s.mu.Lock()
	want, ok := s.users[req.Username]
	static := s.staticAccess != ""
	access, refresh := s.staticAccess, s.staticRefresh
	if ok && want == req.Password && static {
		s.issuedStatic[access] = struct{}{}
		s.issuedStatic[refresh] = struct{}{}
	}
	s.mu.Unlock()

	if !ok || want != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}

	if !static {
		var err error
		if access, err = s.minter.mint(req.Username, kindAccess); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "token mint failed"})
			return
		}
		if refresh, err = s.minter.mint(req.Username, kindRefresh); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "token mint failed"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access":  access,
		"refresh": refresh,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.verifyCalls.Add(1)
	s.stall(r)

	s.mu.Lock()
	forced := s.forcedVerify
	s.mu.Unlock()
	if forced != 0 {
		w.WriteHeader(forced)
		_, _ = w.Write([]byte("{}"))
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "token is required"})
		return
	}

	if !s.accepts(req.Token) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) accepts(token string) bool {
	s.mu.Lock()
	_, revoked := s.revoked[token]
	_, static := s.issuedStatic[token]
	s.mu.Unlock()

	if revoked {
		return false
	}
	if static {
		return true
	}
	_, err := s.minter.parse(token)
	return err == nil
}

func (s *Server) stall(r *http.Request) {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-r.Context().Done():
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
