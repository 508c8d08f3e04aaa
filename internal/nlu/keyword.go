package nlu

import (
	"context"
	"strings"
	"time"

	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

const (
	keywordModel      = "keyword_patterns"
	keywordConfidence = 0.70
)

// KeywordProvider is the deterministic, dependency-free classifier at the
// bottom of every NLU fallback chain.
type KeywordProvider struct {
	tables          *Tables
	defaultLanguage string
}

func NewKeywordProvider(tables *Tables, opts providers.Options) *KeywordProvider {
	lang := opts.DefaultLanguage
	if lang == "" {
		lang = "es"
	}
	return &KeywordProvider{tables: tables, defaultLanguage: lang}
}

func (p *KeywordProvider) AnalyzeText(_ context.Context, text, language string, _ *models.ProfileContext) models.ExtractionResult {
	start := time.Now()
	if language == "" {
		language = p.defaultLanguage
	}
	lower := strings.ToLower(text)

	intent := FirstMatch(lower, p.tables.Intents)
	destination := p.tables.Destination(lower)
	accessibility := FirstMatch(lower, p.tables.Accessibility)

	matched := intent != "" || destination != "" || accessibility != ""
	if intent == "" {
		intent = models.DefaultIntent
	}

	result := models.ExtractionResult{
		Status:     models.ExtractionStatusFallback,
		Intent:     intent,
		Confidence: 0.0,
		Entities: models.EntitySet{
			Destination:   models.StringPtr(destination),
			Accessibility: models.StringPtr(accessibility),
		},
		Provider:        ProviderKeyword,
		Model:           keywordModel,
		Language:        language,
		AnalysisVersion: models.DefaultAnalysisVersion,
		LatencyMs:       time.Since(start).Milliseconds(),
	}
	if matched {
		result.Status = models.ExtractionStatusOK
		result.Confidence = keywordConfidence
	}
	result.Normalize()
	return result
}

func (p *KeywordProvider) IsAvailable() bool { return true }

func (p *KeywordProvider) SupportedLanguages() []string { return []string{"es"} }

func (p *KeywordProvider) Info() map[string]interface{} {
	return map[string]interface{}{
		"provider":              ProviderKeyword,
		"model":                 keywordModel,
		"available":             true,
		"default_language":      p.defaultLanguage,
		"classification_method": "keyword_matching",
		"analysis_version":      models.DefaultAnalysisVersion,
		"tables_version":        p.tables.Version,
	}
}
