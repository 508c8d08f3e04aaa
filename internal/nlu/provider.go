package nlu

import (
	"context"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

const (
	ProviderKeyword = "keyword"
	ProviderGenAI   = "genai"
)

// Provider classifies a query into an intent plus entity slots. Providers
// report failures through ExtractionResult.Status and never return errors.
type Provider interface {
	providers.Describer
	AnalyzeText(ctx context.Context, text, language string, profile *models.ProfileContext) models.ExtractionResult
}

type Registry = providers.Registry[Provider]

// NewRegistry returns a registry with the keyword provider registered as the fallback.
func NewRegistry(tables *Tables, log logger.Logger) *Registry {
	reg := providers.NewRegistry[Provider]("nlu", ProviderKeyword, log)
	reg.Register(ProviderKeyword, func(opts providers.Options) (Provider, error) {
		return NewKeywordProvider(tables, opts), nil
	})
	return reg
}

func providerName(p Provider) string {
	if name, ok := p.Info()["provider"].(string); ok {
		return name
	}
	return "unknown"
}

func modelName(p Provider) string {
	if name, ok := p.Info()["model"].(string); ok {
		return name
	}
	return ""
}
