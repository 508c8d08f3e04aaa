package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoWithContext(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(2 * time.Second)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := c.DoWithContext(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RateLimitHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// one request per minute, burst one: the second call must wait
	c := NewClient(time.Second, WithRateLimit(1.0/60, 1))

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := c.DoWithContext(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req2, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err = c.DoWithContext(ctx, req2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestWithRateLimit_DisabledForNonPositive(t *testing.T) {
	c := NewClient(time.Second, WithRateLimit(0, 5))
	assert.Nil(t, c.limiter)
}
