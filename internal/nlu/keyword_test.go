package nlu

import (
	"context"
	"testing"

	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyword(t *testing.T) *KeywordProvider {
	t.Helper()
	tables, err := DefaultTables()
	require.NoError(t, err)
	return NewKeywordProvider(tables, providers.Options{})
}

func TestKeywordProvider_AnalyzeText(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		intent        string
		destination   string
		accessibility string
		status        models.ExtractionStatus
		confidence    float64
	}{
		{
			name:          "route to prado in wheelchair",
			text:          "Necesito ir al Museo del Prado en silla de ruedas",
			intent:        "route_planning",
			destination:   "Museo del Prado",
			accessibility: "wheelchair",
			status:        models.ExtractionStatusOK,
			confidence:    0.70,
		},
		{
			name:        "concert search",
			text:        "Quiero un concierto esta noche",
			intent:      "event_search",
			destination: "Espacios musicales Madrid",
			status:      models.ExtractionStatusOK,
			confidence:  0.70,
		},
		{
			name:        "generic madrid",
			text:        "Qué ver en Madrid",
			intent:      models.DefaultIntent,
			destination: "Madrid centro",
			status:      models.ExtractionStatusOK,
			confidence:  0.70,
		},
		{
			name:        "madrid with specific venue",
			text:        "El Thyssen de Madrid",
			intent:      models.DefaultIntent,
			destination: "Museo Thyssen",
			status:      models.ExtractionStatusOK,
			confidence:  0.70,
		},
		{
			name:          "accessibility only",
			text:          "Soy sordo",
			intent:        models.DefaultIntent,
			accessibility: "hearing_impairment",
			status:        models.ExtractionStatusOK,
			confidence:    0.70,
		},
		{
			name:       "nothing matches",
			text:       "Hello there",
			intent:     models.DefaultIntent,
			status:     models.ExtractionStatusFallback,
			confidence: 0.0,
		},
		{
			name:       "empty input never errors",
			text:       "",
			intent:     models.DefaultIntent,
			status:     models.ExtractionStatusFallback,
			confidence: 0.0,
		},
	}

	p := newKeyword(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.AnalyzeText(context.Background(), tt.text, "", nil)

			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, tt.destination, models.StringValue(res.Entities.Destination))
			assert.Equal(t, tt.accessibility, models.StringValue(res.Entities.Accessibility))
			assert.Equal(t, tt.status, res.Status)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
			assert.Equal(t, "keyword", res.Provider)
			assert.Equal(t, "keyword_patterns", res.Model)
			assert.Equal(t, "es", res.Language)
		})
	}
}

func TestKeywordProvider_Describe(t *testing.T) {
	p := newKeyword(t)
	assert.True(t, p.IsAvailable())
	assert.Equal(t, []string{"es"}, p.SupportedLanguages())
	assert.Equal(t, "keyword", p.Info()["provider"])
	assert.Equal(t, "2024.1", p.Info()["tables_version"])
}

func TestParseTables(t *testing.T) {
	t.Run("custom tables are lowercased", func(t *testing.T) {
		tables, err := ParseTables([]byte(`
version: test
intents:
  - label: museum_visit
    keywords: [MUSEO]
`))
		require.NoError(t, err)
		p := NewKeywordProvider(tables, providers.Options{DefaultLanguage: "es"})
		res := p.AnalyzeText(context.Background(), "un museo", "", nil)
		assert.Equal(t, "museum_visit", res.Intent)
	})

	t.Run("missing label is rejected", func(t *testing.T) {
		_, err := ParseTables([]byte("intents:\n  - keywords: [a]\n"))
		require.Error(t, err)
	})

	t.Run("no intents is rejected", func(t *testing.T) {
		_, err := ParseTables([]byte("version: x\n"))
		require.Error(t, err)
	})
}
