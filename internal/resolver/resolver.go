// Package resolver merges NLU entities with NER locations into one
// destination under a fixed precedence table.
package resolver

import (
	"fmt"
	"strings"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
)

var genericDestinations = map[string]bool{
	"general":       true,
	"general_query": true,
	"madrid centro": true,
	"none":          true,
	"null":          true,
	"":              true,
}

type EntityResolver struct {
	logger logger.Logger
}

func NewEntityResolver(log logger.Logger) *EntityResolver {
	return &EntityResolver{logger: log.With(map[string]interface{}{"component": "entity_resolver"})}
}

// ResolveResults is Resolve applied to full provider results.
func (r *EntityResolver) ResolveResults(nlu models.ExtractionResult, ner models.LocationResult) models.ResolvedEntities {
	return r.Resolve(nlu.Entities, ner.Locations, ner.TopLocation)
}

// Resolve picks the destination from the NLU slot and the NER top location.
// The first matching rule wins:
//
//	both empty                  → none
//	only NER                    → ner
//	only NLU                    → nlu
//	equal after trim+lower      → both_agree (NLU spelling)
//	one contains the other      → nlu_normalized
//	NLU generic                 → ner_override (conflict noted)
//	otherwise                   → nlu_preferred (conflict noted)
//
// The remaining slots pass through from NLU.
func (r *EntityResolver) Resolve(entities models.EntitySet, locations []string, nerTop *string) models.ResolvedEntities {
	nluDest := entities.Destination
	nluNorm := normalize(nluDest)
	nerNorm := normalize(nerTop)

	source := make(map[string]models.ResolutionSource, 5)
	conflicts := []string{}
	var destination *string

	switch {
	case nluNorm == "" && nerNorm == "":
		source["destination"] = models.SourceNone
	case nluNorm == "":
		destination = nerTop
		source["destination"] = models.SourceNER
	case nerNorm == "":
		destination = nluDest
		source["destination"] = models.SourceNLU
	case nluNorm == nerNorm:
		destination = nluDest
		source["destination"] = models.SourceBothAgree
	case strings.Contains(nluNorm, nerNorm) || strings.Contains(nerNorm, nluNorm):
		destination = nluDest
		source["destination"] = models.SourceNLUNormalized
	case genericDestinations[nluNorm]:
		destination = nerTop
		source["destination"] = models.SourceNEROverride
		conflicts = append(conflicts, fmt.Sprintf("NLU='%s' generic, NER='%s' specific → NER used", *nluDest, *nerTop))
	default:
		destination = nluDest
		source["destination"] = models.SourceNLUPreferred
		conflicts = append(conflicts, fmt.Sprintf("Conflict: NLU='%s' vs NER='%s' → NLU preferred", *nluDest, *nerTop))
	}

	passThrough := map[string]*string{
		"accessibility":        entities.Accessibility,
		"timeframe":            entities.Timeframe,
		"transport_preference": entities.TransportPreference,
		"budget":               entities.Budget,
	}
	for field, v := range passThrough {
		if v != nil && *v != "" {
			source[field] = models.SourceNLU
		} else {
			source[field] = models.SourceNone
		}
	}

	if len(conflicts) > 0 {
		r.logger.Warn("entity resolver conflicts", map[string]interface{}{"conflicts": conflicts})
	}

	if locations == nil {
		locations = []string{}
	}
	return models.ResolvedEntities{
		Destination:         copyPtr(destination),
		Locations:           locations,
		TopLocation:         copyPtr(nerTop),
		Accessibility:       copyPtr(entities.Accessibility),
		Timeframe:           copyPtr(entities.Timeframe),
		TransportPreference: copyPtr(entities.TransportPreference),
		Budget:              copyPtr(entities.Budget),
		ResolutionSource:    source,
		Conflicts:           conflicts,
	}
}

func normalize(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
