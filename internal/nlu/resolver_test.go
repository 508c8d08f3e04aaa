package nlu

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okResult(intent string) models.ExtractionResult {
	return models.ExtractionResult{Status: models.ExtractionStatusOK, Intent: intent, Confidence: 0.8}
}

func TestResolver_Analyze(t *testing.T) {
	tests := []struct {
		name          string
		primary       *stubProvider
		fallback      *stubProvider
		timeout       time.Duration
		wantProvider  string
		wantStatus    models.ExtractionStatus
		fallbackCalls int
	}{
		{
			name:          "primary succeeds",
			primary:       &stubProvider{name: "genai", result: okResult("route_planning")},
			fallback:      &stubProvider{name: "keyword", result: okResult("general_query")},
			timeout:       time.Second,
			wantProvider:  "genai",
			wantStatus:    models.ExtractionStatusOK,
			fallbackCalls: 0,
		},
		{
			name:          "primary fallback status is kept",
			primary:       &stubProvider{name: "genai", result: models.ExtractionResult{Status: models.ExtractionStatusFallback}},
			fallback:      &stubProvider{name: "keyword", result: okResult("general_query")},
			timeout:       time.Second,
			wantProvider:  "genai",
			wantStatus:    models.ExtractionStatusFallback,
			fallbackCalls: 0,
		},
		{
			name:          "primary error uses fallback",
			primary:       &stubProvider{name: "genai", result: models.NewErrorResult("genai", "m", "es", errors.New("boom"))},
			fallback:      &stubProvider{name: "keyword", result: okResult("event_search")},
			timeout:       time.Second,
			wantProvider:  "keyword",
			wantStatus:    models.ExtractionStatusOK,
			fallbackCalls: 1,
		},
		{
			name:          "primary timeout uses fallback",
			primary:       &stubProvider{name: "genai", result: okResult("route_planning"), delay: time.Second},
			fallback:      &stubProvider{name: "keyword", result: okResult("event_search")},
			timeout:       30 * time.Millisecond,
			wantProvider:  "keyword",
			wantStatus:    models.ExtractionStatusOK,
			fallbackCalls: 1,
		},
		{
			name:          "same provider is not retried",
			primary:       &stubProvider{name: "keyword", result: models.NewErrorResult("keyword", "m", "es", errors.New("boom"))},
			fallback:      &stubProvider{name: "keyword", result: okResult("event_search")},
			timeout:       time.Second,
			wantProvider:  "keyword",
			wantStatus:    models.ExtractionStatusError,
			fallbackCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.primary, tt.fallback, tt.timeout, logger.NewTestLogger(t))
			res := r.Analyze(context.Background(), "texto", "es", nil)

			assert.Equal(t, tt.wantProvider, res.Provider)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.fallbackCalls, tt.fallback.callCount())
		})
	}
}

func TestResolver_CanceledSkipsFallback(t *testing.T) {
	primary := &stubProvider{name: "genai", result: okResult("route_planning"), delay: time.Second}
	fallback := &stubProvider{name: "keyword", result: okResult("event_search")}
	r := NewResolver(primary, fallback, time.Second, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := r.Analyze(ctx, "texto", "es", nil)
	assert.Equal(t, models.ExtractionStatusError, res.Status)
	assert.Contains(t, res.Error, providers.ErrCallCanceled.Error())
	assert.Equal(t, 0, fallback.callCount())
}

func TestNewRegistry_KeywordFallback(t *testing.T) {
	tables, err := DefaultTables()
	require.NoError(t, err)
	reg := NewRegistry(tables, logger.NewNoOpLogger())
	reg.Register(ProviderGenAI, GenAIConstructor(GenAIConfig{}, nil, logger.NewNoOpLogger()))

	assert.Equal(t, []string{"genai", "keyword"}, reg.Names())

	// genai without credentials is unavailable and degrades to keyword
	p, err := reg.CreateFromConfig("GenAI", providers.Options{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, ProviderKeyword, providerName(p))

	_, err = reg.CreateFromConfig("spacy", providers.Options{})
	assert.Error(t, err)
}
