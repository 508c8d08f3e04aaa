package tools

import (
	"context"

	"tourism-workers/internal/catalog"
	"tourism-workers/internal/common/logger"
)

const routesAccessibilityScore = 8.5

var routeAlternatives = []string{"accessible_taxi", "uber_wam", "accessible_private_transport"}

type RoutesPayload struct {
	Destination           string                `json:"destination"`
	Routes                []catalog.RouteOption `json:"routes"`
	Alternatives          []string              `json:"alternatives"`
	AccessibilityScore    float64               `json:"accessibility_score"`
	WeatherConsiderations string                `json:"weather_considerations"`
	EstimatedCost         string                `json:"estimated_cost"`
}

// RoutesTool picks a destination from the accessibility output and returns
// its accessible routes.
type RoutesTool struct {
	catalog *catalog.Catalog
	logger  logger.Logger
}

func NewRoutesTool(c *catalog.Catalog, log logger.Logger) *RoutesTool {
	return &RoutesTool{
		catalog: c,
		logger:  log.With(map[string]interface{}{"tool": RoutesToolName}),
	}
}

func (t *RoutesTool) Name() string { return RoutesToolName }

func (t *RoutesTool) Run(ctx context.Context, accessibilityRaw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destination := t.catalog.RouteDestinations.Pick(accessibilityRaw)
	entry, _ := t.catalog.RoutesFor(destination)

	t.logger.Debug("routes selected", map[string]interface{}{
		"destination": destination,
		"routes":      len(entry.Routes),
	})

	routes := entry.Routes
	if routes == nil {
		routes = []catalog.RouteOption{}
	}
	return encode(RoutesPayload{
		Destination:           destination,
		Routes:                routes,
		Alternatives:          routeAlternatives,
		AccessibilityScore:    routesAccessibilityScore,
		WeatherConsiderations: "Check weather for walking portions",
		EstimatedCost:         entry.Cost,
	})
}
