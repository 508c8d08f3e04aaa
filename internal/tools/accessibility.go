package tools

import (
	"context"
	"fmt"
	"time"

	"tourism-workers/internal/catalog"
	"tourism-workers/internal/common/logger"
)

type AccessibilityPayload struct {
	Destination        string   `json:"destination"`
	AccessibilityLevel string   `json:"accessibility_level"`
	VenueRating        float64  `json:"venue_rating"`
	Facilities         []string `json:"facilities"`
	Warnings           []string `json:"warnings"`
	AccessibilityScore float64  `json:"accessibility_score"`
	Certification      string   `json:"certification"`
	LastUpdated        string   `json:"last_updated"`
}

// AccessibilityTool looks up the NLU destination in the accessibility table.
type AccessibilityTool struct {
	catalog *catalog.Catalog
	logger  logger.Logger
	now     func() time.Time
}

func NewAccessibilityTool(c *catalog.Catalog, log logger.Logger) *AccessibilityTool {
	return &AccessibilityTool{
		catalog: c,
		logger:  log.With(map[string]interface{}{"tool": AccessibilityToolName}),
		now:     time.Now,
	}
}

func (t *AccessibilityTool) Name() string { return AccessibilityToolName }

// Run reads entities.destination from the NLU output. Unparseable input is
// treated as the "general" destination.
func (t *AccessibilityTool) Run(ctx context.Context, nluRaw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destination := generalPlaceholder
	if p, err := ParseNLUPayload(nluRaw); err == nil && p.Entities.Destination != "" {
		destination = p.Entities.Destination
	}

	entry, found := t.catalog.AccessibilityFor(destination)
	t.logger.Debug("accessibility lookup", map[string]interface{}{
		"destination": destination,
		"known":       found,
	})

	warnings := []string{}
	if !found && destination != generalPlaceholder {
		warnings = append(warnings, fmt.Sprintf("No verified accessibility data for %s", destination))
	}

	return encode(AccessibilityPayload{
		Destination:        destination,
		AccessibilityLevel: entry.Level,
		VenueRating:        entry.VenueRating,
		Facilities:         nonNil(entry.Facilities),
		Warnings:           warnings,
		AccessibilityScore: entry.Score,
		Certification:      entry.Certification,
		LastUpdated:        timestamp(t.now),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
