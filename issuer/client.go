package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTokenPath is the token-pair endpoint path.
	DefaultTokenPath = "/token"
	// DefaultVerifyPath is the token verification endpoint path.
	DefaultVerifyPath = "/token/verify"
	// DefaultTimeout bounds each issuer round trip.
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
)

// Config describes where the issuer lives and how long to wait for it.
type Config struct {
	BaseURL    string
	TokenPath  string
	VerifyPath string
	Timeout    time.Duration
	// HTTPClient overrides the client built from Timeout. Tests use it to
	// route through httptest servers.
	HTTPClient *http.Client
}

// TokenPair is the issuer's answer to a successful token request.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Client talks to the token issuer. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	tokenURL  string
	verifyURL string
}

// New validates cfg and builds a Client. No connection is opened until the
// first request.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("issuer: base url required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("issuer: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("issuer: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("issuer: base url has no host")
	}

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath = DefaultTokenPath
	}
	verifyPath := cfg.VerifyPath
	if verifyPath == "" {
		verifyPath = DefaultVerifyPath
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		http:      hc,
		tokenURL:  base + ensureLeadingSlash(tokenPath),
		verifyURL: base + ensureLeadingSlash(verifyPath),
	}, nil
}

// IssueToken trades credentials for a token pair.
//
// A 4xx answer yields *RejectedError, a 5xx answer or transport failure
// wraps ErrUnavailable, and a 200 answer without both tokens wraps
// ErrMalformedResponse.
func (c *Client) IssueToken(ctx context.Context, username, password string) (TokenPair, error) {
	resp, err := c.postJSON(ctx, c.tokenURL, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return TokenPair{}, err
	}
	defer drain(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: read token response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return TokenPair{}, &RejectedError{Status: resp.StatusCode, Detail: detailFrom(body)}
	case resp.StatusCode >= 500:
		return TokenPair{}, fmt.Errorf("%w: token endpoint status %d", ErrUnavailable, resp.StatusCode)
	default:
		return TokenPair{}, fmt.Errorf("%w: unexpected token endpoint status %d", ErrMalformedResponse, resp.StatusCode)
	}

	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("%w: decode token pair: %v", ErrMalformedResponse, err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		return TokenPair{}, fmt.Errorf("%w: token pair incomplete", ErrMalformedResponse)
	}
	return pair, nil
}

// VerifyToken asks the issuer whether token is still accepted. Only a 200
// answer counts as valid. A 5xx answer or transport failure returns false
// together with an error wrapping ErrUnavailable; any other status is a
// plain rejection.
func (c *Client) VerifyToken(ctx context.Context, token string) (bool, error) {
	resp, err := c.postJSON(ctx, c.verifyURL, map[string]string{"token": token})
	if err != nil {
		return false, err
	}
	drain(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return false, fmt.Errorf("%w: verify status %d", ErrUnavailable, resp.StatusCode)
	}
	return resp.StatusCode == http.StatusOK, nil
}

func (c *Client) postJSON(ctx context.Context, target string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("issuer: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("issuer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// detailFrom extracts the "detail" field of an error body, if any.
func detailFrom(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Detail)
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
