package nlu

import (
	"context"
	"errors"
	"time"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

// Resolver runs the primary provider and retries a single call on the
// fallback when the primary errors or times out. The primary is never
// swapped out permanently.
type Resolver struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	logger   logger.Logger
}

func NewResolver(primary, fallback Provider, timeout time.Duration, log logger.Logger) *Resolver {
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		logger:   log.With(map[string]interface{}{"component": "nlu_resolver"}),
	}
}

func (r *Resolver) Primary() Provider { return r.primary }

// Analyze never returns a hard error. A cancelled ctx yields an error result
// without consulting the fallback.
func (r *Resolver) Analyze(ctx context.Context, text, language string, profile *models.ProfileContext) models.ExtractionResult {
	name := providerName(r.primary)

	result, err := providers.Call(ctx, r.timeout, func(ctx context.Context) models.ExtractionResult {
		return r.primary.AnalyzeText(ctx, text, language, profile)
	})
	if errors.Is(err, providers.ErrCallCanceled) {
		return models.NewErrorResult(name, modelName(r.primary), language, err)
	}
	if err == nil && result.Status != models.ExtractionStatusError {
		result.Normalize()
		return result
	}

	reason := "status_error"
	if err != nil {
		reason = "call_failed"
		result = models.NewErrorResult(name, modelName(r.primary), language, err)
	}

	if r.fallback == nil || providerName(r.fallback) == name {
		return result
	}

	r.logger.Warn("nlu provider failed, retrying with fallback", map[string]interface{}{
		"provider": name,
		"fallback": providerName(r.fallback),
		"reason":   reason,
		"error":    result.Error,
	})
	metrics.ProviderFallbacks.WithLabelValues("nlu", name, reason).Inc()

	fb, err := providers.Call(ctx, r.timeout, func(ctx context.Context) models.ExtractionResult {
		return r.fallback.AnalyzeText(ctx, text, language, profile)
	})
	if err != nil {
		return models.NewErrorResult(providerName(r.fallback), modelName(r.fallback), language, err)
	}
	fb.Normalize()
	return fb
}
