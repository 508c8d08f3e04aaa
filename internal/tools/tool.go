// Package tools implements the leaf tools of the analysis pipeline. Each
// tool takes a string input and returns a JSON document.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"tourism-workers/internal/models"
)

// Tool names as reported in PipelineStep.Tool.
const (
	NLUToolName           = "tourism_nlu"
	LocationNERToolName   = "location_ner"
	AccessibilityToolName = "accessibility_analysis"
	RoutesToolName        = "route_planning"
	VenueInfoToolName     = "tourism_info"
)

const DefaultLanguage = "es"

type Tool interface {
	Name() string
	Run(ctx context.Context, input string) (string, error)
}

type ctxKey int

const (
	languageKey ctxKey = iota
	profileKey
)

// WithLanguage sets the request language seen by the NLU and NER tools.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, languageKey, language)
}

func LanguageFrom(ctx context.Context) string {
	if lang, ok := ctx.Value(languageKey).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}

// WithProfile attaches the resolved user profile to a request.
func WithProfile(ctx context.Context, profile *models.ProfileContext) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

func ProfileFrom(ctx context.Context) *models.ProfileContext {
	p, _ := ctx.Value(profileKey).(*models.ProfileContext)
	return p
}

// encode renders v as indented JSON without HTML escaping.
func encode(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func timestamp(now func() time.Time) string {
	return now().Format(time.RFC3339)
}
