package tools

import (
	"context"
	"time"

	"tourism-workers/internal/catalog"
	"tourism-workers/internal/common/logger"
)

type VenuePayload struct {
	Venue                 string            `json:"venue"`
	Type                  string            `json:"type,omitempty"`
	OpeningHours          map[string]string `json:"opening_hours"`
	Pricing               map[string]string `json:"pricing"`
	AccessibilityReviews  []string          `json:"accessibility_reviews"`
	CurrentCrowds         string            `json:"current_crowds"`
	SpecialExhibitions    []string          `json:"special_exhibitions"`
	AccessibilityServices map[string]string `json:"accessibility_services"`
	Contact               map[string]string `json:"contact"`
	LastUpdated           string            `json:"last_updated"`
}

// VenueInfoTool returns hours, pricing and accessibility services for the
// venue named in the NLU output.
type VenueInfoTool struct {
	catalog *catalog.Catalog
	logger  logger.Logger
	now     func() time.Time
}

func NewVenueInfoTool(c *catalog.Catalog, log logger.Logger) *VenueInfoTool {
	return &VenueInfoTool{
		catalog: c,
		logger:  log.With(map[string]interface{}{"tool": VenueInfoToolName}),
		now:     time.Now,
	}
}

func (t *VenueInfoTool) Name() string { return VenueInfoToolName }

func (t *VenueInfoTool) Run(ctx context.Context, nluRaw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := t.catalog.VenueNames.Pick(nluRaw)
	entry, found := t.catalog.VenueFor(name)
	t.logger.Debug("venue selected", map[string]interface{}{
		"venue": name,
		"known": found,
	})

	return encode(VenuePayload{
		Venue:                 name,
		Type:                  entry.Type,
		OpeningHours:          entry.OpeningHours,
		Pricing:               entry.Pricing,
		AccessibilityReviews:  nonNil(entry.AccessibilityReviews),
		CurrentCrowds:         "moderate",
		SpecialExhibitions:    nonNil(entry.SpecialExhibitions),
		AccessibilityServices: entry.AccessibilityServices,
		Contact:               entry.Contact,
		LastUpdated:           timestamp(t.now),
	})
}
