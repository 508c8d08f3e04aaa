package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
workers:
  analyze-tourism-query:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "keyword", cfg.NLU.Provider)
	assert.Equal(t, "es", cfg.NLU.DefaultLanguage)
	assert.Equal(t, "gazetteer", cfg.NER.Provider)
	assert.Equal(t, "es_core_news_sm", cfg.NER.FallbackModel)
	assert.InDelta(t, 0.6, cfg.NER.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "embedded", cfg.Catalog.Source)
	assert.Equal(t, 10000, cfg.Pipeline.StageTimeout)
	assert.Equal(t, 5, cfg.Workers["analyze-tourism-query"].MaxJobsActive)
	assert.Equal(t, 3, cfg.Workers["analyze-tourism-query"].MaxRetries)
}

func TestLoadFromFile_ModelMapAsYAMLMapping(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
ner:
  model_map:
    ES: es_core_news_lg
    fr: fr_core_news_sm
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	mapping, err := cfg.NER.ModelMapping()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"es": "es_core_news_lg", "fr": "fr_core_news_sm"}, mapping)
}

func TestLoadFromFile_ModelMapAsJSONString(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
ner:
  model_map: '{"en":"en_core_web_md"}'
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	mapping, err := cfg.NER.ModelMapping()
	require.NoError(t, err)
	assert.Equal(t, "en_core_web_md", mapping["en"])
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_GENAI_KEY", "secret-key")
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
apis:
  genai:
    base_url: http://genai:8080
    api_key: ${TEST_GENAI_KEY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.APIs.GenAI.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "nlu:\n  provider: keyword\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "postgres catalog without host",
			body:    "camunda:\n  broker_address: x:1\ncatalog:\n  source: postgres\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "unknown catalog source",
			body:    "camunda:\n  broker_address: x:1\ncatalog:\n  source: s3\n",
			wantErr: "catalog.source",
		},
		{
			name:    "elasticsearch ner without address",
			body:    "camunda:\n  broker_address: x:1\nner:\n  provider: elasticsearch\n",
			wantErr: "database.elasticsearch",
		},
		{
			name:    "cache without redis",
			body:    "camunda:\n  broker_address: x:1\nnlu:\n  cache:\n    enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "malformed model map",
			body:    "camunda:\n  broker_address: x:1\nner:\n  model_map: 'not-json'\n",
			wantErr: "ner.model_map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNERConfig_ModelMappingDefaults(t *testing.T) {
	mapping, err := NERConfig{}.ModelMapping()
	require.NoError(t, err)
	assert.Equal(t, DefaultNERModelMap, mapping)

	// returned map must not alias the package default
	mapping["es"] = "changed"
	assert.Equal(t, "es_core_news_md", DefaultNERModelMap["es"])
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"canonicalize-tourism-data": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "canonicalize-tourism-data").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "missing").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "canonicalize-tourism-data"))
	assert.True(t, IsWorkerEnabled(cfg, "missing"))
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
