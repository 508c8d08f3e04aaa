package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/textnorm"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

const defaultSearchSize = 10

type ElasticsearchConfig struct {
	Index           string
	Enabled         bool
	DefaultLanguage string
	Size            int
}

// ElasticsearchProvider looks the query up in a place-name index. Documents
// carry {name, aliases, kind}; a hit counts only if its name or one of its
// aliases actually occurs in the text.
type ElasticsearchProvider struct {
	config *ElasticsearchConfig
	client *elasticsearch.Client
	logger logger.Logger
}

func NewElasticsearchProvider(config *ElasticsearchConfig, client *elasticsearch.Client, log logger.Logger) *ElasticsearchProvider {
	config.DefaultLanguage = strings.ToLower(config.DefaultLanguage)
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "es"
	}
	if config.Size <= 0 {
		config.Size = defaultSearchSize
	}
	return &ElasticsearchProvider{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{"provider": ProviderElasticsearch}),
	}
}

func ElasticsearchConstructor(config ElasticsearchConfig, client *elasticsearch.Client, log logger.Logger) providers.Constructor[Provider] {
	return func(opts providers.Options) (Provider, error) {
		cfg := config
		cfg.Enabled = opts.Enabled
		if opts.DefaultLanguage != "" {
			cfg.DefaultLanguage = opts.DefaultLanguage
		}
		return NewElasticsearchProvider(&cfg, client, log), nil
	}
}

type placeDoc struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Kind    string   `json:"kind"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64  `json:"_score"`
			Source placeDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildPlaceQuery(text string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "aliases^2"},
				"type":   "best_fields",
			},
		},
	}
}

func (p *ElasticsearchProvider) ExtractLocations(ctx context.Context, text, language string) models.LocationResult {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = p.config.DefaultLanguage
	}
	if strings.TrimSpace(text) == "" {
		return models.EmptyLocationResult(ProviderElasticsearch, "", language, models.LocationStatusEmptyInput)
	}
	if !p.IsAvailable() {
		return models.EmptyLocationResult(ProviderElasticsearch, "", language, models.LocationStatusProviderUnavailable)
	}

	docs, err := p.search(ctx, text)
	if err != nil {
		p.logger.Error("place search failed", map[string]interface{}{
			"index": p.config.Index,
			"error": err.Error(),
		})
		res := models.EmptyLocationResult(ProviderElasticsearch, p.config.Index, language, models.LocationStatusError)
		res.Error = err.Error()
		return res
	}

	folded := textnorm.Fold(text)
	raw := make([]string, 0, len(docs))
	for _, d := range docs {
		if mentioned(folded, d) {
			raw = append(raw, d.Name)
		}
	}
	return models.NewLocationResult(raw, ProviderElasticsearch, p.config.Index, language)
}

func mentioned(foldedText string, d placeDoc) bool {
	for _, n := range append([]string{d.Name}, d.Aliases...) {
		if textnorm.ContainsWord(foldedText, textnorm.Fold(n)) {
			return true
		}
	}
	return false
}

func (p *ElasticsearchProvider) search(ctx context.Context, text string) ([]placeDoc, error) {
	body, err := json.Marshal(buildPlaceQuery(text, p.config.Size))
	if err != nil {
		return nil, err
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.config.Index),
		p.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, p.config.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	docs := make([]placeDoc, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		if strings.TrimSpace(h.Source.Name) != "" {
			docs = append(docs, h.Source)
		}
	}
	return docs, nil
}

func (p *ElasticsearchProvider) IsAvailable() bool {
	return p.config.Enabled && p.client != nil && p.config.Index != ""
}

func (p *ElasticsearchProvider) SupportedLanguages() []string { return []string{"en", "es"} }

func (p *ElasticsearchProvider) Info() map[string]interface{} {
	return map[string]interface{}{
		"provider":         ProviderElasticsearch,
		"model":            p.config.Index,
		"available":        p.IsAvailable(),
		"default_language": p.config.DefaultLanguage,
		"index":            p.config.Index,
	}
}
