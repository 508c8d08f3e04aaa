// Package catalog holds the versioned accessibility, route and venue tables
// the domain tools read from.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"tourism-workers/internal/common/textnorm"
)

//go:embed catalog.yaml
var embeddedYAML []byte

var ErrCatalogLoadFailed = errors.New("CATALOG_LOAD_FAILED")

type AccessibilityEntry struct {
	Level         string   `yaml:"accessibility_level" json:"accessibility_level"`
	VenueRating   float64  `yaml:"venue_rating" json:"venue_rating"`
	Facilities    []string `yaml:"facilities" json:"facilities"`
	Score         float64  `yaml:"accessibility_score" json:"accessibility_score"`
	Certification string   `yaml:"certification" json:"certification"`
}

type RouteOption struct {
	ID                    string   `yaml:"id" json:"id"`
	Transport             string   `yaml:"transport" json:"transport"`
	Line                  string   `yaml:"line" json:"line,omitempty"`
	Duration              string   `yaml:"duration" json:"duration"`
	Accessibility         string   `yaml:"accessibility" json:"accessibility"`
	Steps                 []string `yaml:"steps" json:"steps"`
	AccessibilityFeatures []string `yaml:"accessibility_features" json:"accessibility_features"`
}

type RouteEntry struct {
	Routes []RouteOption `yaml:"routes" json:"routes"`
	Cost   string        `yaml:"cost" json:"cost"`
}

type VenueEntry struct {
	Type                  string            `yaml:"type" json:"type,omitempty"`
	OpeningHours          map[string]string `yaml:"opening_hours" json:"opening_hours"`
	Pricing               map[string]string `yaml:"pricing" json:"pricing"`
	AccessibilityReviews  []string          `yaml:"accessibility_reviews" json:"accessibility_reviews"`
	SpecialExhibitions    []string          `yaml:"special_exhibitions" json:"special_exhibitions"`
	AccessibilityServices map[string]string `yaml:"accessibility_services" json:"accessibility_services"`
	Contact               map[string]string `yaml:"contact" json:"contact"`
}

// Rule maps any of its substrings to Target.
type Rule struct {
	Target string   `yaml:"target" json:"target"`
	Match  []string `yaml:"match" json:"match"`
}

// RuleSet picks the target of the first rule whose substrings occur in a
// text, or Default.
type RuleSet struct {
	Default string `yaml:"default" json:"default"`
	Rules   []Rule `yaml:"rules" json:"rules"`
}

func (rs RuleSet) Pick(text string) string {
	folded := textnorm.Fold(text)
	for _, r := range rs.Rules {
		for _, m := range r.Match {
			if m = textnorm.Fold(m); m != "" && strings.Contains(folded, m) {
				return r.Target
			}
		}
	}
	return rs.Default
}

type Catalog struct {
	Version              string                        `yaml:"version" json:"version"`
	Accessibility        map[string]AccessibilityEntry `yaml:"accessibility" json:"accessibility"`
	DefaultAccessibility AccessibilityEntry            `yaml:"default_accessibility" json:"default_accessibility"`
	Routes               map[string]RouteEntry         `yaml:"routes" json:"routes"`
	DefaultRoute         RouteEntry                    `yaml:"default_route" json:"default_route"`
	Venues               map[string]VenueEntry         `yaml:"venues" json:"venues"`
	DefaultVenue         VenueEntry                    `yaml:"default_venue" json:"default_venue"`
	RouteDestinations    RuleSet                       `yaml:"route_destinations" json:"route_destinations"`
	VenueNames           RuleSet                       `yaml:"venue_names" json:"venue_names"`

	// folded name -> table key
	accessibilityIdx map[string]string
	routesIdx        map[string]string
	venuesIdx        map[string]string
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Parse(embeddedYAML)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoadFailed, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.reindex()
	return &c, nil
}

func (c *Catalog) validate() error {
	switch {
	case c.Version == "":
		return fmt.Errorf("%w: version is required", ErrCatalogLoadFailed)
	case len(c.DefaultRoute.Routes) == 0:
		return fmt.Errorf("%w: default_route needs at least one route", ErrCatalogLoadFailed)
	case c.DefaultAccessibility.Level == "":
		return fmt.Errorf("%w: default_accessibility.accessibility_level is required", ErrCatalogLoadFailed)
	case c.RouteDestinations.Default == "":
		return fmt.Errorf("%w: route_destinations.default is required", ErrCatalogLoadFailed)
	case c.VenueNames.Default == "":
		return fmt.Errorf("%w: venue_names.default is required", ErrCatalogLoadFailed)
	}
	return nil
}

func (c *Catalog) reindex() {
	c.accessibilityIdx = foldIndex(c.Accessibility)
	c.routesIdx = foldIndex(c.Routes)
	c.venuesIdx = foldIndex(c.Venues)
}

func foldIndex[V any](m map[string]V) map[string]string {
	idx := make(map[string]string, len(m))
	for k := range m {
		idx[textnorm.Fold(k)] = k
	}
	return idx
}

// AccessibilityFor returns the entry for destination and whether it was found.
// Unknown destinations get DefaultAccessibility.
func (c *Catalog) AccessibilityFor(destination string) (AccessibilityEntry, bool) {
	if key, ok := c.accessibilityIdx[textnorm.Fold(destination)]; ok {
		return c.Accessibility[key], true
	}
	return c.DefaultAccessibility, false
}

func (c *Catalog) RoutesFor(destination string) (RouteEntry, bool) {
	if key, ok := c.routesIdx[textnorm.Fold(destination)]; ok {
		return c.Routes[key], true
	}
	return c.DefaultRoute, false
}

func (c *Catalog) VenueFor(name string) (VenueEntry, bool) {
	if key, ok := c.venuesIdx[textnorm.Fold(name)]; ok {
		return c.Venues[key], true
	}
	return c.DefaultVenue, false
}

// DefaultVenueName is the name used when no venue rule matches.
func (c *Catalog) DefaultVenueName() string {
	return c.VenueNames.Default
}
