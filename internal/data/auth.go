package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"ercot-forecast/internal/metrics"
)

// TokenSource supplies the bearer token for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate forces the next Token call to log in again.
	Invalidate()
}

type AuthConfig struct {
	URL      string
	ClientID string
	Scope    string
	Username string
	Password string
	// Lifetime caps token reuse; a JWT exp claim that comes sooner wins.
	Lifetime time.Duration
}

// Authenticator logs in with the ERCOT B2C password grant and caches the
// id_token until it expires. Concurrent callers share one login.
type Authenticator struct {
	cfg    AuthConfig
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewAuthenticator(cfg AuthConfig, client *http.Client, logger *slog.Logger) *Authenticator {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = time.Hour
	}
	return &Authenticator{cfg: cfg, client: client, logger: logger.With("component", "auth"), now: time.Now}
}

func (a *Authenticator) cached() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && a.now().Before(a.expires) {
		return a.token, true
	}
	return "", false
}

// Token returns a valid id_token, logging in when the cached one expired.
// The shared login runs detached from any one caller's context, so a caller
// that gives up does not fail the others waiting on it.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if tok, ok := a.cached(); ok {
		return tok, nil
	}
	ch := a.group.DoChan("token", func() (any, error) {
		if tok, ok := a.cached(); ok {
			return tok, nil
		}
		tok, exp, err := a.login(context.WithoutCancel(ctx))
		metrics.IncTokenRefresh(err)
		if err != nil {
			return "", err
		}
		a.mu.Lock()
		a.token, a.expires = tok, exp
		a.mu.Unlock()
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expires = time.Time{}
	a.mu.Unlock()
}

func (a *Authenticator) login(ctx context.Context) (string, time.Time, error) {
	if a.cfg.Username == "" || a.cfg.Password == "" {
		return "", time.Time{}, &APIError{Code: CodeAuthFailed, Message: "ERCOT API credentials not found; set ERCOTUSER and ERCOTPASS"}
	}
	form := url.Values{
		"grant_type":    {"password"},
		"username":      {a.cfg.Username},
		"password":      {a.cfg.Password},
		"response_type": {"id_token"},
		"scope":         {a.cfg.Scope},
		"client_id":     {a.cfg.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := a.now()
	resp, err := a.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", time.Time{}, &APIError{Code: CodeTimeout, Message: "authentication request timed out", Err: err}
		}
		return "", time.Time{}, &APIError{Code: CodeTransportFailure, Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()
	a.logger.Info("token response", "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", time.Time{}, &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeAuthFailed,
			Message:    "Authentication failed. Check your ERCOTUSER and ERCOTPASS credentials.",
		}
	default:
		return "", time.Time{}, &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeAPIError,
			Message:    fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, &APIError{StatusCode: resp.StatusCode, Code: CodeInvalidResponse, Message: "failed to decode token response", Err: err}
	}
	if tr.IDToken == "" {
		return "", time.Time{}, &APIError{StatusCode: resp.StatusCode, Code: CodeAuthFailed, Message: "token response has no id_token"}
	}

	exp := start.Add(a.cfg.Lifetime)
	if claimed, ok := tokenExpiry(tr.IDToken); ok && claimed.Before(exp) {
		exp = claimed
	}
	a.logger.Debug("token acquired", "expires", exp)
	return tr.IDToken, exp, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// is only forwarded, never trusted locally.
func tokenExpiry(raw string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
