package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	commonhttp "tourism-workers/internal/common/http"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

var locationLabels = map[string]bool{"LOC": true, "GPE": true, "FAC": true}

type SpacyConfig struct {
	ServiceURL          string
	Enabled             bool
	DefaultLanguage     string
	ModelMap            map[string]string
	FallbackModel       string
	ConfidenceThreshold float64
	Timeout             time.Duration
}

// SpacyProvider calls a spaCy model-serving sidecar. Model availability is
// probed once per language:model pair and remembered.
type SpacyProvider struct {
	config *SpacyConfig
	client *commonhttp.Client
	logger logger.Logger

	mu     sync.Mutex
	loaded map[string]string
}

func NewSpacyProvider(config *SpacyConfig, client *commonhttp.Client, log logger.Logger) *SpacyProvider {
	config.DefaultLanguage = strings.ToLower(config.DefaultLanguage)
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "es"
	}
	if config.FallbackModel == "" {
		config.FallbackModel = "es_core_news_sm"
	}
	if client == nil {
		client = commonhttp.NewClient(config.Timeout)
	}
	return &SpacyProvider{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{"provider": ProviderSpacy}),
		loaded: make(map[string]string),
	}
}

// SpacyConstructor adapts NewSpacyProvider to the registry.
func SpacyConstructor(config SpacyConfig, client *commonhttp.Client, log logger.Logger) providers.Constructor[Provider] {
	return func(opts providers.Options) (Provider, error) {
		cfg := config
		cfg.Enabled = opts.Enabled
		if opts.DefaultLanguage != "" {
			cfg.DefaultLanguage = opts.DefaultLanguage
		}
		if opts.ConfidenceThreshold > 0 {
			cfg.ConfidenceThreshold = opts.ConfidenceThreshold
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		if cfg.ServiceURL != "" {
			if _, err := url.Parse(cfg.ServiceURL); err != nil {
				return nil, fmt.Errorf("spacy service_url: %w", err)
			}
		}
		return NewSpacyProvider(&cfg, client, log), nil
	}
}

type spacyRequest struct {
	Model    string `json:"model"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type spacyEntity struct {
	Text  string   `json:"text"`
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

type spacyResponse struct {
	Entities []spacyEntity `json:"entities"`
}

func (p *SpacyProvider) ExtractLocations(ctx context.Context, text, language string) models.LocationResult {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = p.config.DefaultLanguage
	}
	if strings.TrimSpace(text) == "" {
		return models.EmptyLocationResult(ProviderSpacy, "", language, models.LocationStatusEmptyInput)
	}
	if !p.IsAvailable() {
		return models.EmptyLocationResult(ProviderSpacy, "", language, models.LocationStatusProviderUnavailable)
	}

	configured := p.modelFor(language)
	model, ok := p.ensureModel(ctx, language, configured)
	if !ok {
		return models.EmptyLocationResult(ProviderSpacy, configured, language, models.LocationStatusModelUnavailable)
	}

	start := time.Now()
	entities, err := p.recognize(ctx, spacyRequest{Model: model, Language: language, Text: text})
	if err != nil {
		p.logger.Error("spacy extraction failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		res := models.EmptyLocationResult(ProviderSpacy, model, language, models.LocationStatusError)
		res.Error = err.Error()
		return res
	}

	raw := make([]string, 0, len(entities))
	for _, e := range entities {
		if !locationLabels[strings.ToUpper(e.Label)] {
			continue
		}
		if e.Score != nil && *e.Score < p.config.ConfidenceThreshold {
			continue
		}
		raw = append(raw, e.Text)
	}

	result := models.NewLocationResult(raw, ProviderSpacy, model, language)
	p.logger.Debug("spacy extraction complete", map[string]interface{}{
		"model":         model,
		"locationCount": result.Count,
		"latencyMs":     time.Since(start).Milliseconds(),
	})
	return result
}

// modelFor resolves model_map[lang], then model_map[default], then the fallback model.
func (p *SpacyProvider) modelFor(language string) string {
	if m := p.config.ModelMap[language]; m != "" {
		return m
	}
	if m := p.config.ModelMap[p.config.DefaultLanguage]; m != "" {
		return m
	}
	return p.config.FallbackModel
}

// ensureModel returns the model to use for language, trying the fallback
// model when the configured one cannot be served.
func (p *SpacyProvider) ensureModel(ctx context.Context, language, model string) (string, bool) {
	if p.probe(ctx, language, model) {
		return model, true
	}
	p.logger.Warn("configured spacy model unavailable", map[string]interface{}{
		"language": language,
		"model":    model,
	})

	fallback := p.config.FallbackModel
	if model == fallback {
		return "", false
	}
	if p.probe(ctx, language, fallback) {
		return fallback, true
	}
	p.logger.Error("fallback spacy model unavailable", map[string]interface{}{
		"language":       language,
		"fallback_model": fallback,
	})
	return "", false
}

func (p *SpacyProvider) probe(ctx context.Context, language, model string) bool {
	key := language + ":" + model

	p.mu.Lock()
	_, cached := p.loaded[key]
	p.mu.Unlock()
	if cached {
		return true
	}

	if err := p.checkModel(ctx, model); err != nil {
		p.logger.Debug("spacy model probe failed", map[string]interface{}{"model": model, "error": err.Error()})
		return false
	}

	p.mu.Lock()
	p.loaded[key] = model
	p.mu.Unlock()
	return true
}

func (p *SpacyProvider) checkModel(ctx context.Context, model string) error {
	endpoint := p.baseURL() + "/models/" + url.PathEscape(model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.DoWithContext(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model %s: status %d", model, resp.StatusCode)
	}
	return nil
}

func (p *SpacyProvider) recognize(ctx context.Context, body spacyRequest) ([]spacyEntity, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL()+"/ner", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("ner request: status %d", resp.StatusCode)
	}

	var out spacyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.New("ner request: malformed response")
	}
	return out.Entities, nil
}

func (p *SpacyProvider) baseURL() string {
	return strings.TrimRight(p.config.ServiceURL, "/")
}

func (p *SpacyProvider) IsAvailable() bool {
	return p.config.Enabled && p.config.ServiceURL != ""
}

func (p *SpacyProvider) SupportedLanguages() []string {
	langs := make([]string, 0, len(p.config.ModelMap))
	for lang := range p.config.ModelMap {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func (p *SpacyProvider) cachedModels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.loaded))
	for k := range p.loaded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *SpacyProvider) Info() map[string]interface{} {
	return map[string]interface{}{
		"provider":         ProviderSpacy,
		"model":            p.modelFor(p.config.DefaultLanguage),
		"available":        p.IsAvailable(),
		"default_language": p.config.DefaultLanguage,
		"model_map":        p.config.ModelMap,
		"fallback_model":   p.config.FallbackModel,
		"cached_models":    p.cachedModels(),
	}
}
