package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResponseCacheExpiry(t *testing.T) {
	c := NewResponseCache(time.Minute)
	defer c.Close()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	resp := &Response{Data: [][]any{{1.0}}}
	c.Set("k", resp)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Same(t, resp, got)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestResponseCacheNilSafe(t *testing.T) {
	var c *ResponseCache
	c.Set("k", &Response{})
	_, ok := c.Get("k")
	assert.False(t, ok)
	c.Close()
	assert.Equal(t, 0, c.Len())
}

func TestGenerateCacheKeyIgnoresParamOrder(t *testing.T) {
	a := GenerateCacheKey("https://x/y", map[string]string{"a": "1", "b": "2"})
	b := GenerateCacheKey("https://x/y", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, GenerateCacheKey("https://x/z", map[string]string{"a": "1", "b": "2"}))
	assert.Len(t, a, 64)
}
