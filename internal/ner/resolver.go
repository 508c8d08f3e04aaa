package ner

import (
	"context"
	"errors"
	"time"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

// Resolver runs the primary NER provider and consults the fallback for a
// single call when the primary fails, times out or has no usable model.
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
		logger:   log.With(map[string]interface{}{"component": "ner_resolver"}),
	}
}

func (r *Resolver) Primary() Provider { return r.primary }

func (r *Resolver) Extract(ctx context.Context, text, language string) models.LocationResult {
	name := providerName(r.primary)

	result, err := providers.Call(ctx, r.timeout, func(ctx context.Context) models.LocationResult {
		return r.primary.ExtractLocations(ctx, text, language)
	})
	if errors.Is(err, providers.ErrCallCanceled) {
		res := models.EmptyLocationResult(name, modelName(r.primary), language, models.LocationStatusError)
		res.Error = err.Error()
		return res
	}
	if err == nil && !result.Failed() {
		return result
	}

	reason := result.Status
	if err != nil {
		reason = "call_failed"
		result = models.EmptyLocationResult(name, modelName(r.primary), language, models.LocationStatusError)
		result.Error = err.Error()
	}

	if r.fallback == nil || providerName(r.fallback) == name {
		return result
	}

	r.logger.Warn("ner provider failed, retrying with fallback", map[string]interface{}{
		"provider": name,
		"fallback": providerName(r.fallback),
		"reason":   reason,
		"error":    result.Error,
	})
	metrics.ProviderFallbacks.WithLabelValues("ner", name, reason).Inc()

	fb, err := providers.Call(ctx, r.timeout, func(ctx context.Context) models.LocationResult {
		return r.fallback.ExtractLocations(ctx, text, language)
	})
	if err != nil {
		res := models.EmptyLocationResult(providerName(r.fallback), modelName(r.fallback), language, models.LocationStatusError)
		res.Error = err.Error()
		return res
	}
	return fb
}
