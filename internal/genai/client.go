// Package genai adapts the GenAI gateway's text generation endpoint. It owns
// prompt templating; callers pass the ordered stage outputs.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "tourism-workers/internal/common/http"
	"tourism-workers/internal/common/logger"
)

var (
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrNotConfigured     = errors.New("generation gateway not configured")
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
}

type generateRequest struct {
	Model       string  `json:"model,omitempty"`
	System      string  `json:"system"`
	Prompt      string  `json:"prompt"`
	Language    string  `json:"language,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Client calls POST /api/ai/generate with retries on transient failures.
type Client struct {
	config *Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(config *Config, client *commonhttp.Client, log logger.Logger) *Client {
	if client == nil {
		client = commonhttp.NewClient(0)
	}
	return &Client{
		config: config,
		http:   client,
		logger: log.With(map[string]interface{}{"component": "genai"}),
	}
}

func (c *Client) Name() string { return "genai" }

func (c *Client) Configured() bool {
	return c.config.BaseURL != "" && c.config.APIKey != ""
}

// Generate returns the generated text. Deadline or cancellation of ctx
// yields ErrGenerationTimeout.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, ErrNotConfigured)
	}

	body, err := json.Marshal(generateRequest{
		Model:       c.config.Model,
		System:      SystemPrompt,
		Prompt:      BuildPrompt(req),
		Language:    req.Language,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrGenerationTimeout
			}
		}

		text, retry, err := c.send(ctx, body)
		if err == nil {
			c.logger.Info("generation completed", map[string]interface{}{
				"attempts":   attempt + 1,
				"latency_ms": time.Since(start).Milliseconds(),
				"length":     len(text),
			})
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ErrGenerationTimeout
		}
		lastErr = err
		if !retry {
			break
		}
	}

	c.logger.Error("generation failed", map[string]interface{}{
		"error": lastErr.Error(),
	})
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

func (c *Client) send(ctx context.Context, body []byte) (text string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.config.BaseURL, "/")+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		transient := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", transient, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", false, errors.New("empty completion")
	}
	return out.Text, false, nil
}
