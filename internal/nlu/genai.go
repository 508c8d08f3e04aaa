package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "tourism-workers/internal/common/http"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
)

var (
	ErrClassificationFailed  = errors.New("CLASSIFICATION_FAILED")
	ErrClassificationTimeout = errors.New("CLASSIFICATION_TIMEOUT")
)

const classifyFunctionName = "classify_tourism_request"

var (
	intentEnum        = []string{"route_planning", "event_search", "restaurant_search", "accommodation_search", models.DefaultIntent}
	accessibilityEnum = []string{"wheelchair", "visual_impairment", "hearing_impairment", "cognitive"}
	timeframeEnum     = []string{"today", "today_morning", "today_afternoon", "today_evening", "tomorrow", "this_weekend"}
	transportEnum     = []string{"metro", "bus", "walk", "taxi"}
)

const classifySystemPrompt = "You are an NLU classifier for an accessible tourism assistant focused on Spain. " +
	"Classify the user's intent and extract relevant entities. " +
	"Detect accessibility needs even when expressed indirectly. " +
	"The user may write in Spanish or English."

// ClassifyFunctionSchema is the function-calling schema sent to the gateway.
func ClassifyFunctionSchema() map[string]interface{} {
	nullable := func(enum []string) map[string]interface{} {
		return map[string]interface{}{"type": []string{"string", "null"}, "enum": append(append([]string{}, enum...), "")}
	}
	return map[string]interface{}{
		"name":        classifyFunctionName,
		"description": "Classify a tourism user request into intent and extract entities",
		"parameters": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"intent":                 map[string]interface{}{"type": "string", "enum": intentEnum},
				"confidence":             map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
				"destination":            map[string]interface{}{"type": []string{"string", "null"}},
				"accessibility":          nullable(accessibilityEnum),
				"timeframe":              nullable(timeframeEnum),
				"transport_preference":   nullable(transportEnum),
				"alternative_intent":     nullable(intentEnum),
				"alternative_confidence": map[string]interface{}{"type": []string{"number", "null"}, "minimum": 0, "maximum": 1},
			},
			"required": []string{"intent", "confidence"},
		},
	}
}

type GenAIConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	Enabled         bool
	DefaultLanguage string
	MaxRetries      int
	Timeout         time.Duration
}

// GenAIProvider classifies through the GenAI gateway's function-calling endpoint.
type GenAIProvider struct {
	config *GenAIConfig
	client *commonhttp.Client
	logger logger.Logger
}

func NewGenAIProvider(config *GenAIConfig, client *commonhttp.Client, log logger.Logger) *GenAIProvider {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "es"
	}
	if client == nil {
		client = commonhttp.NewClient(config.Timeout)
	}
	return &GenAIProvider{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{"provider": ProviderGenAI}),
	}
}

// GenAIConstructor adapts NewGenAIProvider to the registry.
func GenAIConstructor(config GenAIConfig, client *commonhttp.Client, log logger.Logger) providers.Constructor[Provider] {
	return func(opts providers.Options) (Provider, error) {
		cfg := config
		cfg.Enabled = opts.Enabled
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.DefaultLanguage != "" {
			cfg.DefaultLanguage = opts.DefaultLanguage
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		return NewGenAIProvider(&cfg, client, log), nil
	}
}

type classifyRequest struct {
	Model       string                 `json:"model"`
	System      string                 `json:"system"`
	Input       string                 `json:"input"`
	Language    string                 `json:"language"`
	Temperature float64                `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens"`
	Function    map[string]interface{} `json:"function"`
	Profile     *models.ProfileContext `json:"profile,omitempty"`
}

type classifyResponse struct {
	FunctionCall struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function_call"`
}

type classification struct {
	Intent                string   `json:"intent"`
	Confidence            float64  `json:"confidence"`
	Destination           *string  `json:"destination"`
	Accessibility         *string  `json:"accessibility"`
	Timeframe             *string  `json:"timeframe"`
	TransportPreference   *string  `json:"transport_preference"`
	AlternativeIntent     *string  `json:"alternative_intent"`
	AlternativeConfidence *float64 `json:"alternative_confidence"`
}

func (p *GenAIProvider) AnalyzeText(ctx context.Context, text, language string, profile *models.ProfileContext) models.ExtractionResult {
	if language == "" {
		language = p.config.DefaultLanguage
	}
	if strings.TrimSpace(text) == "" {
		return models.NewErrorResult(ProviderGenAI, p.config.Model, language, errors.New("empty input"))
	}
	if !p.IsAvailable() {
		return models.NewErrorResult(ProviderGenAI, p.config.Model, language, errors.New("provider unavailable"))
	}

	start := time.Now()
	args, err := p.classify(ctx, text, language, profile)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		p.logger.Error("genai classification failed", map[string]interface{}{
			"error":      err.Error(),
			"latency_ms": latency,
		})
		res := models.NewErrorResult(ProviderGenAI, p.config.Model, language, err)
		res.LatencyMs = latency
		return res
	}

	result := models.ExtractionResult{
		Status:     models.ExtractionStatusOK,
		Intent:     enumOr(args.Intent, intentEnum, models.DefaultIntent),
		Confidence: args.Confidence,
		Entities: models.EntitySet{
			Destination:         trimmed(args.Destination),
			Accessibility:       enumPtr(args.Accessibility, accessibilityEnum),
			Timeframe:           enumPtr(args.Timeframe, timeframeEnum),
			TransportPreference: enumPtr(args.TransportPreference, transportEnum),
		},
		Provider:        ProviderGenAI,
		Model:           p.config.Model,
		Language:        language,
		AnalysisVersion: models.DefaultAnalysisVersion,
		LatencyMs:       latency,
	}
	if alt := enumPtr(args.AlternativeIntent, intentEnum); alt != nil && args.AlternativeConfidence != nil {
		result.Alternatives = []models.Alternative{{Intent: *alt, Confidence: *args.AlternativeConfidence}}
	}
	result.Normalize()

	p.logger.Info("nlu analysis complete", map[string]interface{}{
		"intent":     result.Intent,
		"confidence": result.Confidence,
		"latency_ms": latency,
	})
	return result
}

func (p *GenAIProvider) classify(ctx context.Context, text, language string, profile *models.ProfileContext) (*classification, error) {
	body, err := json.Marshal(classifyRequest{
		Model:       p.config.Model,
		System:      classifySystemPrompt,
		Input:       text,
		Language:    language,
		Temperature: 0,
		MaxTokens:   200,
		Function:    ClassifyFunctionSchema(),
		Profile:     profile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrClassificationTimeout
			}
		}

		args, retry, err := p.send(ctx, body)
		if err == nil {
			return args, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrClassificationTimeout
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, lastErr)
}

// send performs one request; retry reports whether the failure is transient.
func (p *GenAIProvider) send(ctx context.Context, body []byte) (args *classification, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.config.BaseURL, "/")+"/api/ai/classify", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		transient := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, transient, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if out.FunctionCall.Name != "" && out.FunctionCall.Name != classifyFunctionName {
		return nil, false, fmt.Errorf("unexpected function %q", out.FunctionCall.Name)
	}

	var c classification
	if err := decodeArguments(out.FunctionCall.Arguments, &c); err != nil {
		return nil, false, err
	}
	return &c, false, nil
}

// decodeArguments accepts the arguments either as an object or as a JSON-encoded string.
func decodeArguments(raw json.RawMessage, dst *classification) error {
	if len(raw) == 0 {
		return errors.New("missing function arguments")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode arguments: %w", err)
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func (p *GenAIProvider) IsAvailable() bool {
	return p.config.Enabled && p.config.APIKey != "" && p.config.BaseURL != ""
}

func (p *GenAIProvider) SupportedLanguages() []string {
	return []string{"es", "en", "fr", "de", "it", "pt", "ca", "eu", "gl"}
}

func (p *GenAIProvider) Info() map[string]interface{} {
	return map[string]interface{}{
		"provider":              ProviderGenAI,
		"model":                 p.config.Model,
		"available":             p.IsAvailable(),
		"default_language":      p.config.DefaultLanguage,
		"classification_method": "function_calling",
		"analysis_version":      models.DefaultAnalysisVersion,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return models.StringPtr(strings.TrimSpace(*s))
}

func enumPtr(s *string, allowed []string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	for _, a := range allowed {
		if v == a {
			return &v
		}
	}
	return nil
}

func enumOr(s string, allowed []string, def string) string {
	if v := enumPtr(&s, allowed); v != nil {
		return *v
	}
	return def
}
