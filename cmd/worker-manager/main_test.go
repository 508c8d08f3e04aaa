package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourism-workers/internal/bootstrap"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

func testComponents(t *testing.T) *bootstrap.Components {
	t.Helper()
	cfg := &config.Config{
		APIs:     config.APIsConfig{GenAI: config.GenAIConfig{Mode: "template"}},
		NLU:      config.NLUConfig{Provider: "keyword", Enabled: true, DefaultLanguage: "es"},
		NER:      config.NERConfig{Provider: "gazetteer", Enabled: true, DefaultLanguage: "es"},
		Pipeline: config.PipelineConfig{StageTimeout: 1000, ProviderTimeout: 1000, GenerationTimeout: 1000},
		Catalog:  config.CatalogConfig{Source: "embedded"},
	}
	c, err := bootstrap.Build(context.Background(), cfg, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	return c
}

func TestServerMux(t *testing.T) {
	components := testComponents(t)

	tests := []struct {
		name       string
		path       string
		health     error
		wantStatus int
		wantBody   string
	}{
		{"health", "/health", nil, http.StatusOK, "healthy"},
		{"ready", "/ready", nil, http.StatusOK, "ready"},
		{"not ready", "/ready", stderrors.New("broker down"), http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newServerMux(fakeHealth{err: tt.health}, components)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestServerMux_ReadyReportsComponents(t *testing.T) {
	mux := newServerMux(fakeHealth{}, testComponents(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "template", body["generator"])
	assert.NotEmpty(t, body["catalogVersion"])
	nlu, ok := body["nlu"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "keyword", nlu["provider"])
}

func TestServerMux_Metrics(t *testing.T) {
	mux := newServerMux(fakeHealth{}, testComponents(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return stderrors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "test")
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryWithBackoff(func() error {
		calls++
		return stderrors.New("always")
	}, 2, time.Millisecond, zap.NewNop(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test failed after 2 attempts")
	assert.Equal(t, 2, calls)
}
