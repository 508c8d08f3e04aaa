// Package canonical normalizes tool and model output into
// models.CanonicalTourismData. Records that do not validate are dropped
// whole.
package canonical

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/common/textnorm"
	"tourism-workers/internal/common/validation"
	"tourism-workers/internal/models"
)

var (
	ErrNotAnObject      = errors.New("tourism data is not an object")
	ErrValidationFailed = errors.New("VALIDATION_FAILED")
)

const (
	maxScore = 10.0
	maxSteps = 50
)

// CanonicalizeTourismData builds venue, routes and accessibility field by
// field and validates the result. It returns (nil, nil) when no sub-record
// is present and (nil, ErrValidationFailed) when any field has the wrong
// type or range. Scores are clamped into [0,10] and rounded to 2 decimals.
func CanonicalizeTourismData(raw interface{}) (*models.CanonicalTourismData, error) {
	in, err := toObject(raw)
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, nil
	}

	candidate := map[string]interface{}{
		"venue":         venue(in["venue"]),
		"routes":        routes(in["routes"]),
		"accessibility": accessibility(in["accessibility"]),
	}

	result := validation.ValidateDocument(candidate, schema)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(result.GetErrorMessages(), "; "))
	}

	encoded, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	var out models.CanonicalTourismData
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if out.IsEmpty() {
		return nil, nil
	}
	return &out, nil
}

func toObject(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case models.CanonicalTourismData, *models.CanonicalTourismData:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, ErrNotAnObject
	}
}

func venue(raw interface{}) interface{} {
	v, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	out := map[string]interface{}{
		"name":                name(v["name"]),
		"type":                text(v["type"]),
		"accessibility_score": score(first(v, "accessibility_score", "score")),
		"certification":       text(v["certification"]),
		"facilities":          CanonicalizeFacilities(first(v, "facilities", "services")),
		"opening_hours":       v["opening_hours"],
		"pricing":             v["pricing"],
	}
	if out["name"] == nil {
		delete(out, "name")
	}
	return out
}

func routes(raw interface{}) interface{} {
	var list []interface{}
	switch v := raw.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		inner, ok := v["routes"].([]interface{})
		if !ok {
			return nil
		}
		list = inner
	default:
		return nil
	}

	out := make([]interface{}, 0, len(list))
	for _, item := range list {
		r, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, map[string]interface{}{
			"transport":     text(r["transport"]),
			"line":          text(r["line"]),
			"duration":      text(r["duration"]),
			"accessibility": levelValue(first(r, "accessibility", "accessibility_level")),
			"cost":          text(r["cost"]),
			"steps":         steps(r["steps"]),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func accessibility(raw interface{}) interface{} {
	a, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"level":         levelValue(first(a, "accessibility_level", "level")),
		"score":         score(first(a, "accessibility_score", "score")),
		"certification": text(a["certification"]),
		"facilities":    CanonicalizeFacilities(first(a, "facilities", "services")),
		"services":      a["services"],
	}
}

// first returns the first value under keys that is present and non-empty.
func first(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
		case []interface{}:
			if len(v) == 0 {
				continue
			}
		case map[string]interface{}:
			if len(v) == 0 {
				continue
			}
		}
		return m[k]
	}
	return nil
}

// text strips accents and surrounding space from strings. Other types are
// returned untouched for the schema to reject.
func text(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s = textnorm.StripAccents(strings.TrimSpace(s)); s == "" {
		return nil
	}
	return s
}

// name keeps empty strings; a missing name fails validation.
func name(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return textnorm.StripAccents(strings.TrimSpace(s))
	}
	return v
}

func levelValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); !ok {
		return v
	}
	if level := CanonicalizeLevel(v); level != nil {
		return *level
	}
	return nil
}

// score clamps numeric values (or numeric strings) into [0,10], rounded to
// 2 decimals. Anything else is returned untouched for the schema to reject.
func score(v interface{}) interface{} {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return v
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return v
		}
		f = parsed
	default:
		return v
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return ClampScore(f)
}

// ClampScore clamps f into [0,10] and rounds it to 2 decimals.
func ClampScore(f float64) float64 {
	f = math.Max(0, math.Min(maxScore, f))
	return math.Round(f*100) / 100
}

func steps(v interface{}) interface{} {
	switch s := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := scalarString(item)
			if !ok {
				return v
			}
			out = append(out, str)
			if len(out) == maxSteps {
				break
			}
		}
		return out
	case string:
		out := []string{}
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
			if len(out) == maxSteps {
				break
			}
		}
		return out
	default:
		return v
	}
}

// Canonicalizer wraps CanonicalizeTourismData with logging and the
// canonicalization_failures_total metric.
type Canonicalizer struct {
	logger logger.Logger
}

func NewCanonicalizer(log logger.Logger) *Canonicalizer {
	return &Canonicalizer{logger: log.With(map[string]interface{}{"component": "canonicalizer"})}
}

// Canonicalize returns nil on any failure. source labels where the data came
// from ("tools" or "llm").
func (c *Canonicalizer) Canonicalize(source string, raw interface{}) *models.CanonicalTourismData {
	out, err := CanonicalizeTourismData(raw)
	if err != nil {
		metrics.CanonicalizationFailures.WithLabelValues(source).Inc()
		c.logger.Warn("canonicalization failed", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
		return nil
	}
	return out
}
