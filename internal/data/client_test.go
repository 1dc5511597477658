package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct {
	invalidated atomic.Int32
}

func (s *staticToken) Token(context.Context) (string, error) { return "tok", nil }
func (s *staticToken) Invalidate()                           { s.invalidated.Add(1) }

const lambdaPath = "/np4-523-cd/dam_system_lambda"

// pagedServer serves three pages of two rows each.
func pagedServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, lambdaPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("deliveryDateFrom"))

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		body := map[string]any{
			"_meta": map[string]any{"totalRecords": 6, "pageSize": 2, "totalPages": 3, "currentPage": page},
			"fields": []map[string]any{
				{"name": "deliveryDate"}, {"name": "hourEnding"}, {"name": "systemLambda"},
			},
			"data": [][]any{
				{"2024-02-01", fmt.Sprintf("%02d:00", 2*page-1), 20.0 + float64(page)},
				{"2024-02-01", fmt.Sprintf("%02d:00", 2*page), 30.0 + float64(page)},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var lambdaParams = map[string]string{"deliveryDateFrom": "2024-02-01", "deliveryDateTo": "2024-02-01"}

func TestClientGetFollowsPages(t *testing.T) {
	var hits atomic.Int32
	srv := pagedServer(t, &hits)
	c := NewClient(&staticToken{}, ClientConfig{SubscriptionKey: "key", MaxPages: 10})

	resp, err := c.Get(context.Background(), "da_system_lambda", srv.URL+lambdaPath, lambdaParams)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, resp.Pages)
	assert.False(t, resp.Truncated)
	require.Len(t, resp.Data, 6)

	tbl := resp.Table()
	assert.Equal(t, []string{"deliveryDate", "hourEnding", "systemLambda"}, tbl.Columns)
	assert.Equal(t, "06:00", tbl.Rows[5]["hourEnding"])
	assert.Equal(t, 33.0, tbl.Rows[5]["systemLambda"])
}

func TestClientGetStopsAtPageLimit(t *testing.T) {
	var hits atomic.Int32
	srv := pagedServer(t, &hits)
	c := NewClient(&staticToken{}, ClientConfig{SubscriptionKey: "key", MaxPages: 2})

	resp, err := c.Get(context.Background(), "da_system_lambda", srv.URL+lambdaPath, lambdaParams)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.True(t, resp.Truncated)
	assert.Len(t, resp.Data, 4)
}

func TestClientGetUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := pagedServer(t, &hits)
	cache := NewResponseCache(time.Hour)
	defer cache.Close()
	c := NewClient(&staticToken{}, ClientConfig{SubscriptionKey: "key", MaxPages: 5, Cache: cache})

	first, err := c.Get(context.Background(), "da_system_lambda", srv.URL+lambdaPath, lambdaParams)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), "da_system_lambda", srv.URL+lambdaPath, lambdaParams)
	require.NoError(t, err)

	assert.Equal(t, int32(3), hits.Load())
	assert.Same(t, first, second)
}

func TestClientStatusErrors(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, CodeBadRequest},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusTooManyRequests, CodeRateLimited},
		{http.StatusInternalServerError, CodeAPIError},
	}
	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			auth := &staticToken{}
			c := NewClient(auth, ClientConfig{SubscriptionKey: "key"})
			_, err := c.Get(context.Background(), "da_prices", srv.URL+"/np4-190-cd/dam_stlmnt_pnt_prices", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstream)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.code, apiErr.Code)

			switch tc.status {
			case http.StatusUnauthorized:
				assert.Equal(t, int32(1), auth.invalidated.Load())
			case http.StatusTooManyRequests:
				assert.Equal(t, "60", apiErr.RetryAfter)
			case http.StatusNotFound:
				assert.Contains(t, apiErr.Message, "/np4-190-cd/dam_stlmnt_pnt_prices")
			}
		})
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(&staticToken{}, ClientConfig{SubscriptionKey: "key", Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), "da_prices", srv.URL, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeTimeout, apiErr.Code)
}

func TestClientRequiresSubscriptionKey(t *testing.T) {
	c := NewClient(&staticToken{}, ClientConfig{})
	_, err := c.Get(context.Background(), "da_prices", "http://127.0.0.1:1/", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeMissingKey, apiErr.Code)
}

func TestClientRateLimiterRespectsContext(t *testing.T) {
	var hits atomic.Int32
	srv := pagedServer(t, &hits)
	c := NewClient(&staticToken{}, ClientConfig{SubscriptionKey: "key", RequestsPerMinute: 1, MaxPages: 1})

	_, err := c.Get(context.Background(), "da_system_lambda", srv.URL+lambdaPath, lambdaParams)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "da_system_lambda", srv.URL+lambdaPath, lambdaParams)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
