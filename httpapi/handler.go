package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/skillx/sessiongate"
	"github.com/skillx/sessiongate/middleware"
)

const maxBodyBytes = 1 << 16

// Option configures the handler.
type Option func(*server)

// WithLogger sets the request logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *server) { s.metrics = h }
}

// WithSecureCookies marks the session cookie Secure regardless of the
// request's scheme. Use behind a TLS-terminating proxy.
func WithSecureCookies(secure bool) Option {
	return func(s *server) { s.secureCookies = secure }
}

type server struct {
	engine        *sessiongate.Engine
	logger        *slog.Logger
	metrics       http.Handler
	secureCookies bool
}

// Response is the JSON body of login, register and logout.
type Response struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ValidateResponse is the JSON body of /validate.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// New returns the routed handler for engine.
func New(engine *sessiongate.Engine, opts ...Option) http.Handler {
	s := &server{
		engine: engine,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /validate", s.validate)
	mux.HandleFunc("POST /logout", s.logout)
	mux.HandleFunc("GET /healthz", s.healthz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "Malformed request"})
		return
	}

	res, err := s.engine.Login(middleware.WithRequestContext(r), in.get("username"), in.get("password"))
	if err != nil {
		s.fail(w, r, loginStatus(err), err)
		return
	}

	s.setSessionCookie(w, r, res.SessionID)
	writeJSON(w, http.StatusOK, Response{Success: true, SessionID: res.SessionID})
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "Malformed request"})
		return
	}

	res, err := s.engine.Register(middleware.WithRequestContext(r), sessiongate.RegisterRequest{
		Email:     in.get("email"),
		Password:  in.get("password"),
		FirstName: in.get("firstName"),
		LastName:  in.get("lastName"),
	})
	if err != nil {
		s.fail(w, r, registerStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, UserID: res.UserID})
}

func (s *server) validate(w http.ResponseWriter, r *http.Request) {
	// Unreadable bodies fall through to header and cookie lookup.
	in, _ := readInput(w, r)
	id := sessionIDFrom(r, in)
	res := s.engine.Validate(middleware.WithRequestContext(r), id)
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: res.Valid})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	in, _ := readInput(w, r)
	id := sessionIDFrom(r, in)

	if err := s.engine.Logout(middleware.WithRequestContext(r), id); err != nil {
		s.fail(w, r, logoutStatus(err), err)
		return
	}

	s.clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Ping(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"redisLatencyMs": float64(d.Microseconds()) / 1000,
	})
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, Response{Error: sessiongate.UserMessage(err)})
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, sessiongate.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(err, sessiongate.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, sessiongate.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, sessiongate.ErrMalformedIssuerResponse):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func registerStatus(err error) int {
	switch {
	case errors.Is(err, sessiongate.ErrMissingFields), errors.Is(err, sessiongate.ErrPasswordPolicy):
		return http.StatusBadRequest
	case errors.Is(err, sessiongate.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, sessiongate.ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func logoutStatus(err error) int {
	if errors.Is(err, sessiongate.ErrMissingCredentials) {
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

// input is a flat view over a form or JSON body.
type input map[string]string

func (in input) get(key string) string {
	return in[key]
}

func readInput(w http.ResponseWriter, r *http.Request) (input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		raw := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return input{}, err
		}
		in := make(input, len(raw))
		for k, v := range raw {
			if str, ok := v.(string); ok {
				in[k] = str
			}
		}
		return in, nil
	}

	if err := r.ParseForm(); err != nil {
		return input{}, err
	}
	in := make(input, len(r.PostForm))
	for k := range r.PostForm {
		in[k] = r.PostForm.Get(k)
	}
	return in, nil
}

func sessionIDFrom(r *http.Request, in input) string {
	if id := strings.TrimSpace(in.get("sessionId")); id != "" {
		return id
	}
	id, _ := middleware.SessionIDFromRequest(r)
	return id
}

func (s *server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(s.engine.SessionLifetime() / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
