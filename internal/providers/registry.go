// Package providers holds the name → constructor registry shared by the NLU
// and NER subsystems, plus the timeout-bounded call used for every provider
// invocation.
package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "tourism-workers/internal/common/errors"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
)

// Describer is the capability surface every provider exposes.
type Describer interface {
	IsAvailable() bool
	SupportedLanguages() []string
	Info() map[string]interface{}
}

// Options are the provider-independent settings handed to a constructor.
type Options struct {
	Enabled             bool
	DefaultLanguage     string
	Model               string
	ConfidenceThreshold float64
	Timeout             time.Duration
}

// Constructor builds a provider. Dependencies (HTTP clients, Redis, search)
// are captured by the closure at registration time.
type Constructor[P Describer] func(opts Options) (P, error)

// Registry maps normalized provider names to constructors. It is populated at
// startup and read concurrently afterwards.
type Registry[P Describer] struct {
	kind     string
	fallback string
	logger   logger.Logger

	mu    sync.RWMutex
	ctors map[string]Constructor[P]
}

func NewRegistry[P Describer](kind, fallback string, log logger.Logger) *Registry[P] {
	return &Registry[P]{
		kind:     kind,
		fallback: normalize(fallback),
		logger:   log.With(map[string]interface{}{"registry": kind}),
		ctors:    make(map[string]Constructor[P]),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a constructor.
func (r *Registry[P]) Register(name string, ctor Constructor[P]) {
	name = normalize(name)
	r.mu.Lock()
	_, replaced := r.ctors[name]
	r.ctors[name] = ctor
	r.mu.Unlock()

	r.logger.Info("provider registered", map[string]interface{}{
		"provider": name,
		"replaced": replaced,
	})
}

// Names returns the registered provider names in sorted order.
func (r *Registry[P]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[P]) FallbackName() string {
	return r.fallback
}

// Create instantiates the named provider. Unknown names yield an
// UNKNOWN_PROVIDER error.
func (r *Registry[P]) Create(name string, opts Options) (P, error) {
	var zero P
	normalized := normalize(name)

	r.mu.RLock()
	ctor, ok := r.ctors[normalized]
	r.mu.RUnlock()

	if !ok {
		return zero, apperrors.NewUnknownProviderError(r.kind, name, r.Names())
	}

	p, err := ctor(opts)
	if err != nil {
		return zero, apperrors.NewProviderCallFailedError(r.kind, normalized, fmt.Errorf("construct: %w", err))
	}
	return p, nil
}

// CreateFromConfig resolves the configured provider. An unavailable provider,
// or one whose constructor fails, is replaced by the registered fallback with a
// warning and no error. Only an unknown name or a missing fallback is an error.
func (r *Registry[P]) CreateFromConfig(name string, opts Options) (P, error) {
	var zero P
	normalized := normalize(name)
	if normalized == "" {
		normalized = r.fallback
	}

	p, err := r.Create(normalized, opts)
	if err != nil {
		if std := apperrors.Normalize(err); std.Code == apperrors.ErrCodeUnknownProvider {
			return zero, err
		}
		r.logger.Warn("provider construction failed, using fallback", map[string]interface{}{
			"configured": normalized,
			"fallback":   r.fallback,
			"error":      err.Error(),
		})
		return r.createFallback(normalized, opts, "construct_failed")
	}

	if p.IsAvailable() {
		r.logger.Info("provider selected", map[string]interface{}{"provider": normalized})
		return p, nil
	}

	if normalized == r.fallback {
		// the fallback is the end of the chain; use it even if it reports unavailable
		return p, nil
	}

	r.logger.Warn("provider unavailable, using fallback", map[string]interface{}{
		"configured": normalized,
		"fallback":   r.fallback,
	})
	return r.createFallback(normalized, opts, "unavailable")
}

func (r *Registry[P]) createFallback(configured string, opts Options, reason string) (P, error) {
	metrics.ProviderFallbacks.WithLabelValues(r.kind, configured, reason).Inc()

	fb, err := r.Create(r.fallback, opts)
	if err != nil {
		var zero P
		return zero, fmt.Errorf("%s fallback provider %q: %w", r.kind, r.fallback, err)
	}
	return fb, nil
}
