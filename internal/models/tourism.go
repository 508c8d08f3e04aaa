// internal/models/tourism.go
package models

// Canonical accessibility levels. Changing these values requires a schema version bump.
const (
	LevelFullWheelchairAccess    = "full_wheelchair_access"
	LevelPartialWheelchairAccess = "partial_wheelchair_access"
	LevelVariesByLocation        = "varies_by_location"
	LevelPartialAccess           = "partial_access"
)

const CanonicalSchemaVersion = "1.0"

type CanonicalTourismData struct {
	Venue         *Venue         `json:"venue"`
	Routes        []Route        `json:"routes"`
	Accessibility *Accessibility `json:"accessibility"`
}

type Venue struct {
	Name               string            `json:"name"`
	Type               *string           `json:"type"`
	AccessibilityScore *float64          `json:"accessibility_score"`
	Certification      *string           `json:"certification"`
	Facilities         []string          `json:"facilities"`
	OpeningHours       map[string]string `json:"opening_hours"`
	Pricing            map[string]string `json:"pricing"`
}

type Route struct {
	Transport     *string  `json:"transport"`
	Line          *string  `json:"line"`
	Duration      *string  `json:"duration"`
	Accessibility *string  `json:"accessibility"`
	Cost          *string  `json:"cost"`
	Steps         []string `json:"steps"`
}

type Accessibility struct {
	Level         *string           `json:"level"`
	Score         *float64          `json:"score"`
	Certification *string           `json:"certification"`
	Facilities    []string          `json:"facilities"`
	Services      map[string]string `json:"services"`
}

// IsEmpty reports whether no sub-record survived canonicalization.
func (d *CanonicalTourismData) IsEmpty() bool {
	return d == nil || (d.Venue == nil && len(d.Routes) == 0 && d.Accessibility == nil)
}
