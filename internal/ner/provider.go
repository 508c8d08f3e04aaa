package ner

import (
	"context"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

const (
	ProviderGazetteer     = "gazetteer"
	ProviderSpacy         = "spacy"
	ProviderElasticsearch = "elasticsearch"
)

// Provider extracts place names from text. Failures are reported through
// LocationResult.Status.
type Provider interface {
	providers.Describer
	ExtractLocations(ctx context.Context, text, language string) models.LocationResult
}

type Registry = providers.Registry[Provider]

// NewRegistry returns a registry with the gazetteer registered as the fallback.
func NewRegistry(gaz *Gazetteer, log logger.Logger) *Registry {
	reg := providers.NewRegistry[Provider]("ner", ProviderGazetteer, log)
	reg.Register(ProviderGazetteer, func(opts providers.Options) (Provider, error) {
		return NewGazetteerProvider(gaz, opts), nil
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
