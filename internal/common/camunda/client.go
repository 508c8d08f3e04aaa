// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Zeebe gRPC client with retries and error mapping.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig is used when ClientConfig.RetryConfig is nil.
var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// ConfigFrom maps the camunda config section onto a plaintext client config.
func ConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.RequestTimeout),
		RetryConfig:            DefaultRetryConfig,
	}
}

func NewClient(address string) (*Client, error) {
	return NewClientWithConfig(ConfigFrom(config.CamundaConfig{BrokerAddress: address, RequestTimeout: 30000}))
}

// NewClientWithConfig creates the client and verifies the broker answers a
// topology request within ConnectionTimeout.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("zeebe gateway address is empty")
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: cfg}, nil
}

// GetClient returns the raw Zeebe client, used to open job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Retry runs fn until it succeeds, returns a permanent error or exhausts
// rc.MaxRetries. Delays double from BaseDelay up to MaxDelay. The final
// error is a StandardError naming the operation.
func Retry[T any](ctx context.Context, rc *RetryConfig, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryableZeebeError(err) || attempt >= rc.MaxRetries {
			return zero, mapZeebeError(err, operation, attempt)
		}

		delay := rc.BaseDelay << attempt
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("operation %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}
}

// isRetryableZeebeError is true for gRPC codes that signal a transient broker
// condition. Errors without a status (dial failures) are matched by message.
func isRetryableZeebeError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		default:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		msg += fmt.Sprintf(" after %d attempts", attempt)
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)

	if status.Code(err) == codes.DeadlineExceeded || stderrors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "deadline exceeded") {
		return errors.NewTimeoutError("zeebe", wrapped)
	}
	return errors.NewExternalServiceError("zeebe", wrapped)
}

// HealthCheck sends a topology request, retrying transient failures.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	_, err := Retry(ctx, c.config.RetryConfig, "topology", func(ctx context.Context) (int, error) {
		resp, err := c.client.NewTopologyCommand().Send(ctx)
		if err != nil {
			return 0, err
		}
		return len(resp.GetBrokers()), nil
	})
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// DeployProcess deploys one BPMN resource and returns the key of the
// process definition it created.
func (c *Client) DeployProcess(ctx context.Context, name string, bpmn []byte) (int64, error) {
	return Retry(ctx, c.config.RetryConfig, "deploy "+name, func(ctx context.Context) (int64, error) {
		resp, err := c.client.NewDeployResourceCommand().AddResource(bpmn, name).Send(ctx)
		if err != nil {
			return 0, err
		}
		for _, d := range resp.GetDeployments() {
			if p := d.GetProcess(); p != nil {
				return p.GetProcessDefinitionKey(), nil
			}
		}
		return 0, fmt.Errorf("deployment of %s contained no process", name)
	})
}

// RunProcess starts the latest version of processID and waits for it to
// complete, returning its final variables.
func (c *Client) RunProcess(ctx context.Context, processID string, vars map[string]interface{}) (string, error) {
	return Retry(ctx, c.config.RetryConfig, "run "+processID, func(ctx context.Context) (string, error) {
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromMap(vars)
		if err != nil {
			return "", err
		}
		resp, err := cmd.WithResult().Send(ctx)
		if err != nil {
			return "", err
		}
		return resp.GetVariables(), nil
	})
}
