package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		APIs: config.APIsConfig{GenAI: config.GenAIConfig{Mode: "template", Timeout: 1000}},
		NLU: config.NLUConfig{
			Provider:            "keyword",
			Enabled:             true,
			DefaultLanguage:     "es",
			ConfidenceThreshold: 0.4,
			Timeout:             1000,
		},
		NER: config.NERConfig{
			Provider:            "gazetteer",
			Enabled:             true,
			DefaultLanguage:     "es",
			FallbackModel:       "es_core_news_sm",
			ConfidenceThreshold: 0.6,
			Timeout:             1000,
			Index:               "tourism_places",
		},
		Pipeline: config.PipelineConfig{
			StageTimeout:       2000,
			ProviderTimeout:    1000,
			GenerationTimeout:  2000,
			ParallelExtraction: true,
		},
		Catalog: config.CatalogConfig{Source: "embedded"},
	}
}

func TestBuild_TemplateModeEndToEnd(t *testing.T) {
	c, err := Build(context.Background(), testConfig(), nil, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "template", c.Generator.Name())
	assert.Equal(t, "keyword", c.NLU.Primary().Info()["provider"])
	assert.Equal(t, "gazetteer", c.NER.Primary().Info()["provider"])

	resp, err := c.Agent.Process(context.Background(), pipeline.Request{
		Text: "Necesito ir al Museo del Prado en silla de ruedas",
	})
	require.NoError(t, err)

	assert.Equal(t, "route_planning", resp.Intent)
	assert.False(t, resp.Degraded)
	assert.NotEmpty(t, resp.RunID)
	assert.Contains(t, resp.ResponseText, "Museo del Prado")
	require.Len(t, resp.PipelineSteps, 6)
	last := resp.PipelineSteps[5]
	assert.Equal(t, pipeline.ResponseStepName, last.Name)
	assert.Equal(t, models.StepCompleted, last.Status)
	require.NotNil(t, resp.TourismData)
	assert.Equal(t, "Museo del Prado", resp.TourismData.Venue.Name)
}

func TestBuild_UnavailableProvidersFallBack(t *testing.T) {
	cfg := testConfig()
	cfg.NLU.Provider = "genai" // no api key
	cfg.NER.Provider = "elasticsearch"
	cfg.APIs.GenAI.Mode = "gateway" // no base url

	c, err := Build(context.Background(), cfg, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "keyword", c.NLU.Primary().Info()["provider"])
	assert.Equal(t, "gazetteer", c.NER.Primary().Info()["provider"])
	assert.Equal(t, "template", c.Generator.Name())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"unknown nlu provider", func(cfg *config.Config) { cfg.NLU.Provider = "rasa" }},
		{"unknown ner provider", func(cfg *config.Config) { cfg.NER.Provider = "stanza" }},
		{"postgres catalog without database", func(cfg *config.Config) { cfg.Catalog.Source = "postgres" }},
		{"missing catalog file", func(cfg *config.Config) {
			cfg.Catalog = config.CatalogConfig{Source: "file", Path: "/nonexistent/catalog.yaml"}
		}},
		{"missing profile registry", func(cfg *config.Config) { cfg.Profiles.RegistryPath = "/nonexistent/profiles.json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := Build(context.Background(), cfg, nil, nil, logger.NewTestLogger(t))
			assert.Error(t, err)
		})
	}
}

func TestBuild_ProfilesFromRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "2",
		"lastUpdated": "2026-01-01T00:00:00Z",
		"profiles": [{"id": "cultural", "label": "Cultural", "prompt_directives": ["Prioriza museos"], "ranking_bias": {"museum": 2}}]
	}`), 0o644))

	cfg := testConfig()
	cfg.Profiles.RegistryPath = path
	c, err := Build(context.Background(), cfg, nil, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "2", c.Profiles.Version())
	resp, err := c.Agent.Process(context.Background(), pipeline.Request{Text: "Museo del Prado", ProfileID: "cultural"})
	require.NoError(t, err)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "Cultural", resp.Profile.Label)
	assert.Contains(t, resp.ResponseText, "Perfil activo: Cultural")
}
