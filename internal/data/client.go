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
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"ercot-forecast/internal/metrics"
)

// ClientConfig configures NewClient.
type ClientConfig struct {
	SubscriptionKey string
	// Timeout applies per HTTP request. Defaults to 30s.
	Timeout time.Duration
	// RequestsPerMinute throttles requests; 0 disables throttling.
	RequestsPerMinute int
	// MaxPages bounds how many pages one Get merges. Defaults to 1.
	MaxPages int
	// Cache is optional and meant for local development.
	Cache  *ResponseCache
	Logger *slog.Logger
	HTTP   *http.Client
}

// Client fetches ERCOT public reports.
type Client struct {
	auth            TokenSource
	subscriptionKey string
	http            *http.Client
	timeout         time.Duration
	limiter         *rate.Limiter
	maxPages        int
	cache           *ResponseCache
	logger          *slog.Logger
}

func NewClient(auth TokenSource, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Client{
		auth:            auth,
		subscriptionKey: cfg.SubscriptionKey,
		http:            cfg.HTTP,
		timeout:         cfg.Timeout,
		maxPages:        cfg.MaxPages,
		cache:           cfg.Cache,
		logger:          cfg.Logger.With("component", "ercot_client"),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// Get fetches rawURL with params, following _meta.totalPages up to the page
// limit. name labels logs and metrics.
//
// WARNING: If the response cache is configured, responses may be served from
// memory. The cache is for LOCAL DEVELOPMENT only.
func (c *Client) Get(ctx context.Context, name, rawURL string, params map[string]string) (*Response, error) {
	if c.subscriptionKey == "" {
		return nil, &APIError{Code: CodeMissingKey, Message: "ERCOT API subscription key not found; set ERCOTKEY"}
	}

	cacheKey := ""
	if c.cache != nil {
		cacheKey = GenerateCacheKey(rawURL, params)
		cached, found := c.cache.Get(cacheKey)
		metrics.IncCacheLookup(found)
		if found {
			c.logger.Info("cache hit", "endpoint", name, "rows", len(cached.Data))
			return cached, nil
		}
	}

	first, err := c.page(ctx, name, rawURL, params, 0)
	if err != nil {
		return nil, err
	}
	out := &Response{Fields: first.Fields, Data: first.Data, Meta: first.Meta, Pages: 1}
	for p := 2; p <= first.Meta.TotalPages; p++ {
		if p > c.maxPages {
			out.Truncated = true
			c.logger.Warn("page limit reached; response truncated",
				"endpoint", name, "pages", c.maxPages, "total_pages", first.Meta.TotalPages)
			break
		}
		next, err := c.page(ctx, name, rawURL, params, p)
		if err != nil {
			return nil, fmt.Errorf("page %d of %d: %w", p, first.Meta.TotalPages, err)
		}
		out.Data = append(out.Data, next.Data...)
		out.Pages++
	}

	c.logger.Info("fetched", "endpoint", name, "rows", len(out.Data), "pages", out.Pages)
	if c.cache != nil && !out.Truncated {
		c.cache.Set(cacheKey, out)
	}
	return out, nil
}

func (c *Client) page(ctx context.Context, name, rawURL string, params map[string]string, page int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Info("request", "method", http.MethodGet, "endpoint", name, "path", u.Path, "params", params, "page", page)
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveUpstream(name, "error", duration)
		c.logger.Error("request failed", "endpoint", name, "error", err, "duration", duration)
		if isTimeout(err) {
			return nil, &APIError{Code: CodeTimeout, Message: fmt.Sprintf("API request timed out after %s", c.timeout), Err: err}
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &APIError{Code: CodeTransportFailure, Message: "failed to execute request", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Info("response", "endpoint", name, "status", resp.StatusCode, "duration", duration)
	if apiErr := c.statusError(resp, u, params); apiErr != nil {
		metrics.ObserveUpstream(name, strconv.Itoa(resp.StatusCode), duration)
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn("request rejected", "endpoint", name, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.ObserveUpstream(name, "decode_error", duration)
		return nil, &APIError{StatusCode: resp.StatusCode, Code: CodeInvalidResponse, Message: "failed to decode response", Err: err}
	}
	if result.Data == nil {
		result.Data = [][]any{}
	}
	metrics.ObserveUpstream(name, "success", duration)
	return &result, nil
}

func (c *Client) statusError(resp *http.Response, u *url.URL, params map[string]string) *APIError {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeBadRequest,
			Message:    fmt.Sprintf("Bad request - check parameters: %v", params),
		}
	case http.StatusUnauthorized:
		// the next call logs in again
		c.auth.Invalidate()
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeUnauthorized,
			Message:    "Authentication failed - token may have expired. Try again.",
		}
	case http.StatusForbidden:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeForbidden,
			Message:    "Forbidden: check the ERCOT API subscription key",
		}
	case http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeNotFound,
			Message:    fmt.Sprintf("Endpoint not found: %s://%s%s", u.Scheme, u.Host, u.Path),
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeRateLimited,
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       CodeAPIError,
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}
}
