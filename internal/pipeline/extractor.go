package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"tourism-workers/internal/canonical"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/textnorm"
	"tourism-workers/internal/models"
)

var blockPattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

const (
	genericVenueScore  = 6.0
	genericVenuePrefix = "guia"
)

// ExtractBlock finds the first fenced json block in text. clean is the text
// before the block with trailing whitespace removed; block is nil when no
// block exists or it does not parse as a JSON object.
func ExtractBlock(text string) (clean string, block map[string]interface{}, found bool) {
	loc := blockPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, nil, false
	}

	clean = strings.TrimRightFunc(text[:loc[0]], unicode.IsSpace)
	if err := json.Unmarshal([]byte(text[loc[2]:loc[3]]), &block); err != nil {
		return clean, nil, true
	}
	return clean, block, true
}

// IsGenericVenue reports whether tool-derived data carries only the default
// venue: no venue, an empty name, the default score or a guide name.
func IsGenericVenue(data *models.CanonicalTourismData) bool {
	if data == nil || data.Venue == nil {
		return true
	}
	v := data.Venue
	if v.AccessibilityScore != nil && *v.AccessibilityScore == genericVenueScore {
		return true
	}
	name := strings.TrimSpace(v.Name)
	return name == "" || strings.HasPrefix(textnorm.Fold(name), genericVenuePrefix)
}

// Merge returns generated when existing is absent or generic, else existing.
func Merge(existing, generated *models.CanonicalTourismData) *models.CanonicalTourismData {
	if generated == nil {
		return existing
	}
	if existing.IsEmpty() || IsGenericVenue(existing) {
		return generated
	}
	return existing
}

type Extractor struct {
	canonicalizer *canonical.Canonicalizer
	logger        logger.Logger
}

func NewExtractor(c *canonical.Canonicalizer, log logger.Logger) *Extractor {
	return &Extractor{
		canonicalizer: c,
		logger:        log.With(map[string]interface{}{"component": "extractor"}),
	}
}

// Extract strips the structured block from text and merges its canonical
// form into existing. Existing data is returned untouched whenever the
// block is missing, malformed or fails canonicalization.
func (e *Extractor) Extract(text string, existing *models.CanonicalTourismData) (string, *models.CanonicalTourismData) {
	clean, block, found := ExtractBlock(text)
	if !found {
		return text, existing
	}
	if block == nil {
		e.logger.Warn("generated text carried an invalid JSON block", nil)
		return clean, existing
	}

	generated := e.canonicalizer.Canonicalize("llm", block)
	if generated == nil {
		return clean, existing
	}

	merged := Merge(existing, generated)
	if merged == generated {
		e.logger.Info("using generated tourism data", map[string]interface{}{"replaced_tool_data": !existing.IsEmpty()})
	} else {
		e.logger.Info("keeping tool-derived tourism data", nil)
	}
	return clean, merged
}
