package models

import "strings"

// NER statuses reported in LocationResult.Status.
const (
	LocationStatusOK                  = "ok"
	LocationStatusEmptyInput          = "empty_input"
	LocationStatusProviderUnavailable = "provider_unavailable"
	LocationStatusModelUnavailable    = "model_unavailable"
	LocationStatusError               = "error"
)

type LocationResult struct {
	Locations   []string `json:"locations"`
	TopLocation *string  `json:"top_location"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Language    string   `json:"language"`
	Status      string   `json:"status"`
	Count       int      `json:"count"`
	Error       string   `json:"error,omitempty"`
}

// NewLocationResult deduplicates raw case-insensitively, keeping the first
// spelling, and derives TopLocation from the first entry.
func NewLocationResult(raw []string, provider, model, language string) LocationResult {
	locations := DedupeLocations(raw)
	r := LocationResult{
		Locations: locations,
		Provider:  provider,
		Model:     model,
		Language:  language,
		Status:    LocationStatusOK,
		Count:     len(locations),
	}
	if len(locations) > 0 {
		top := locations[0]
		r.TopLocation = &top
	}
	return r
}

// EmptyLocationResult is returned for every non-ok outcome.
func EmptyLocationResult(provider, model, language, status string) LocationResult {
	return LocationResult{
		Locations: []string{},
		Provider:  provider,
		Model:     model,
		Language:  language,
		Status:    status,
	}
}

func DedupeLocations(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, loc := range raw {
		value := strings.TrimSpace(loc)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

// Failed reports whether the result should trigger the fallback provider.
func (r LocationResult) Failed() bool {
	switch r.Status {
	case LocationStatusError, LocationStatusProviderUnavailable, LocationStatusModelUnavailable:
		return true
	}
	return false
}
