// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is a shared outbound HTTP client with an optional request rate limit.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithRateLimit caps outbound requests at rps with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext waits for a rate-limit token before sending. Waiting honours
// ctx cancellation.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return c.httpClient.Do(req.WithContext(ctx))
}

// HTTPClient exposes the underlying client for libraries that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
