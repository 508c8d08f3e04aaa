package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/nlu"
)

// placeholder used in payloads for entities that were not found
const generalPlaceholder = "general"

type NLUEntities struct {
	Destination         string  `json:"destination"`
	Accessibility       string  `json:"accessibility"`
	Timeframe           *string `json:"timeframe"`
	TransportPreference *string `json:"transport_preference"`
	Budget              *string `json:"budget"`
	Language            string  `json:"language"`
}

type NLUPayload struct {
	Intent          string               `json:"intent"`
	Entities        NLUEntities          `json:"entities"`
	Confidence      float64              `json:"confidence"`
	Status          string               `json:"status"`
	Provider        string               `json:"provider"`
	Model           string               `json:"model"`
	AnalysisVersion string               `json:"analysis_version"`
	LatencyMs       int64                `json:"latency_ms"`
	Alternatives    []models.Alternative `json:"alternatives"`
	Analysis        string               `json:"analysis"`
	Timestamp       string               `json:"timestamp"`
}

// NewNLUPayload renders a result the way downstream tools read it. Missing
// destination and accessibility become "general".
func NewNLUPayload(r models.ExtractionResult, now time.Time) NLUPayload {
	dest := orPlaceholder(r.Entities.Destination)
	access := orPlaceholder(r.Entities.Accessibility)
	alts := r.Alternatives
	if alts == nil {
		alts = []models.Alternative{}
	}
	return NLUPayload{
		Intent: r.Intent,
		Entities: NLUEntities{
			Destination:         dest,
			Accessibility:       access,
			Timeframe:           r.Entities.Timeframe,
			TransportPreference: r.Entities.TransportPreference,
			Budget:              r.Entities.Budget,
			Language:            r.Language,
		},
		Confidence:      r.Confidence,
		Status:          string(r.Status),
		Provider:        r.Provider,
		Model:           r.Model,
		AnalysisVersion: r.AnalysisVersion,
		LatencyMs:       r.LatencyMs,
		Alternatives:    alts,
		Analysis:        fmt.Sprintf("Detected %s for %s with %s accessibility needs", r.Intent, dest, access),
		Timestamp:       now.Format(time.RFC3339),
	}
}

// EntitySet turns the payload back into an EntitySet, dropping placeholders.
func (p NLUPayload) EntitySet() models.EntitySet {
	return models.EntitySet{
		Destination:         fromPlaceholder(p.Entities.Destination),
		Accessibility:       fromPlaceholder(p.Entities.Accessibility),
		Timeframe:           p.Entities.Timeframe,
		TransportPreference: p.Entities.TransportPreference,
		Budget:              p.Entities.Budget,
	}
}

// ParseNLUPayload decodes the NLU tool output.
func ParseNLUPayload(raw string) (NLUPayload, error) {
	var p NLUPayload
	err := json.Unmarshal([]byte(raw), &p)
	return p, err
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return generalPlaceholder
	}
	return *s
}

func fromPlaceholder(s string) *string {
	if s == "" || s == generalPlaceholder {
		return nil
	}
	return &s
}

// NLUTool classifies the user input through the NLU resolver.
type NLUTool struct {
	resolver *nlu.Resolver
	logger   logger.Logger
	now      func() time.Time
}

func NewNLUTool(resolver *nlu.Resolver, log logger.Logger) *NLUTool {
	return &NLUTool{
		resolver: resolver,
		logger:   log.With(map[string]interface{}{"tool": NLUToolName}),
		now:      time.Now,
	}
}

func (t *NLUTool) Name() string { return NLUToolName }

func (t *NLUTool) Run(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lang := LanguageFrom(ctx)
	result := t.resolver.Analyze(ctx, input, lang, ProfileFrom(ctx))

	payload := NewNLUPayload(result, t.now())
	t.logger.Debug("nlu analysis complete", map[string]interface{}{
		"intent":   payload.Intent,
		"provider": payload.Provider,
		"status":   payload.Status,
	})
	return encode(payload)
}
