package nlu

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/models"
)

// Cache is the subset of database.RedisClient used for result caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedProvider memoizes successful classifications of inner in Redis.
// Cache failures are logged and treated as misses.
type CachedProvider struct {
	inner  Provider
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedProvider(inner Provider, cache Cache, ttl time.Duration, log logger.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "nlu_cache"}),
	}
}

// CacheKey returns nlu:<provider>:<lang>:<sha256(text)>.
func CacheKey(provider, language, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("nlu:%s:%s:%s", provider, language, hex.EncodeToString(sum[:]))
}

func (c *CachedProvider) AnalyzeText(ctx context.Context, text, language string, profile *models.ProfileContext) models.ExtractionResult {
	if language == "" {
		if def, ok := c.inner.Info()["default_language"].(string); ok {
			language = def
		}
	}
	key := CacheKey(providerName(c.inner), language, text)

	if cached, ok := c.lookup(ctx, key); ok {
		return cached
	}

	result := c.inner.AnalyzeText(ctx, text, language, profile)
	if result.Status != models.ExtractionStatusOK {
		return result
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return result
	}
	if err := c.cache.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("nlu cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return result
}

func (c *CachedProvider) lookup(ctx context.Context, key string) (models.ExtractionResult, bool) {
	var res models.ExtractionResult

	raw, found, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.NLUCacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("nlu cache read failed", map[string]interface{}{"error": err.Error()})
		return res, false
	}
	if !found {
		metrics.NLUCacheRequests.WithLabelValues("miss").Inc()
		return res, false
	}
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		metrics.NLUCacheRequests.WithLabelValues("error").Inc()
		return res, false
	}

	metrics.NLUCacheRequests.WithLabelValues("hit").Inc()
	res.LatencyMs = 0
	return res, true
}

func (c *CachedProvider) IsAvailable() bool { return c.inner.IsAvailable() }

func (c *CachedProvider) SupportedLanguages() []string { return c.inner.SupportedLanguages() }

func (c *CachedProvider) Info() map[string]interface{} {
	info := make(map[string]interface{}, 8)
	for k, v := range c.inner.Info() {
		info[k] = v
	}
	info["cache"] = true
	info["cache_ttl_seconds"] = int(c.ttl.Seconds())
	return info
}
