// internal/models/nlu.go
package models

import "strings"

type ExtractionStatus string

const (
	ExtractionStatusOK       ExtractionStatus = "ok"
	ExtractionStatusFallback ExtractionStatus = "fallback"
	ExtractionStatusError    ExtractionStatus = "error"
)

const (
	DefaultIntent          = "general_query"
	DefaultAnalysisVersion = "nlu_v3.0"
)

// ExtractionResult is the canonical output of every NLU provider.
type ExtractionResult struct {
	Status          ExtractionStatus `json:"status"`
	Intent          string           `json:"intent"`
	Confidence      float64          `json:"confidence"`
	Entities        EntitySet        `json:"entities"`
	Alternatives    []Alternative    `json:"alternatives"`
	Provider        string           `json:"provider"`
	Model           string           `json:"model"`
	Language        string           `json:"language"`
	AnalysisVersion string           `json:"analysis_version"`
	LatencyMs       int64            `json:"latency_ms"`
	Error           string           `json:"error,omitempty"`
}

type Alternative struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// EntitySet holds the optional slots extracted from a query.
type EntitySet struct {
	Destination         *string                `json:"destination"`
	Accessibility       *string                `json:"accessibility"`
	Timeframe           *string                `json:"timeframe"`
	TransportPreference *string                `json:"transport_preference"`
	Budget              *string                `json:"budget"`
	Extra               map[string]interface{} `json:"extra,omitempty"`
}

// NewErrorResult builds the result a provider returns when it could not classify the text.
func NewErrorResult(provider, model, language string, err error) ExtractionResult {
	r := ExtractionResult{
		Status:          ExtractionStatusError,
		Intent:          DefaultIntent,
		Provider:        provider,
		Model:           model,
		Language:        language,
		AnalysisVersion: DefaultAnalysisVersion,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Normalize enforces the result invariants: confidence in [0,1], a non-empty
// intent and alternatives with valid confidences.
func (r *ExtractionResult) Normalize() {
	r.Confidence = clampUnit(r.Confidence)
	if strings.TrimSpace(r.Intent) == "" {
		r.Intent = DefaultIntent
	}
	if r.Status == "" {
		r.Status = ExtractionStatusOK
	}
	if r.AnalysisVersion == "" {
		r.AnalysisVersion = DefaultAnalysisVersion
	}
	if r.LatencyMs < 0 {
		r.LatencyMs = 0
	}
	alts := make([]Alternative, 0, len(r.Alternatives))
	for _, alt := range r.Alternatives {
		if alt.Intent == "" {
			continue
		}
		alt.Confidence = clampUnit(alt.Confidence)
		alts = append(alts, alt)
	}
	r.Alternatives = alts
}

func clampUnit(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StringPtr returns nil for blank values.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
