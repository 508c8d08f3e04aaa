package tools

import (
	"context"
	"encoding/json"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/ner"
)

type LocationPayload struct {
	Locations   []string `json:"locations"`
	TopLocation *string  `json:"top_location"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Language    string   `json:"language"`
	Status      string   `json:"status"`
	Count       int      `json:"count"`
	Reason      string   `json:"reason,omitempty"`
}

func NewLocationPayload(r models.LocationResult) LocationPayload {
	locations := r.Locations
	if locations == nil {
		locations = []string{}
	}
	return LocationPayload{
		Locations:   locations,
		TopLocation: r.TopLocation,
		Provider:    r.Provider,
		Model:       r.Model,
		Language:    r.Language,
		Status:      r.Status,
		Count:       len(locations),
		Reason:      r.Error,
	}
}

// Result converts the payload back into a LocationResult.
func (p LocationPayload) Result() models.LocationResult {
	return models.LocationResult{
		Locations:   p.Locations,
		TopLocation: p.TopLocation,
		Provider:    p.Provider,
		Model:       p.Model,
		Language:    p.Language,
		Status:      p.Status,
		Count:       len(p.Locations),
		Error:       p.Reason,
	}
}

func ParseLocationPayload(raw string) (LocationPayload, error) {
	var p LocationPayload
	err := json.Unmarshal([]byte(raw), &p)
	return p, err
}

// LocationNERTool extracts place names from the raw user input.
type LocationNERTool struct {
	resolver *ner.Resolver
	logger   logger.Logger
}

func NewLocationNERTool(resolver *ner.Resolver, log logger.Logger) *LocationNERTool {
	return &LocationNERTool{
		resolver: resolver,
		logger:   log.With(map[string]interface{}{"tool": LocationNERToolName}),
	}
}

func (t *LocationNERTool) Name() string { return LocationNERToolName }

func (t *LocationNERTool) Run(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result := t.resolver.Extract(ctx, input, LanguageFrom(ctx))

	t.logger.Debug("ner extraction complete", map[string]interface{}{
		"locations": len(result.Locations),
		"status":    result.Status,
	})
	return encode(NewLocationPayload(result))
}
