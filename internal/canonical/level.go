package canonical

import (
	"strings"

	"tourism-workers/internal/common/textnorm"
	"tourism-workers/internal/models"
)

// CanonicalizeLevel maps a free-text accessibility level onto the canonical
// levels. Unrecognised text is returned folded and truncated.
func CanonicalizeLevel(raw interface{}) *string {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	key := textnorm.Fold(s)
	if key == "" {
		return nil
	}
	if level, ok := vocabulary.Levels[key]; ok {
		return &level
	}

	var level string
	switch {
	case strings.Contains(key, "completo"), strings.Contains(key, "total"), strings.Contains(key, "wheelchair"):
		level = models.LevelFullWheelchairAccess
	case strings.Contains(key, "parcial"), strings.Contains(key, "partial"):
		level = models.LevelPartialWheelchairAccess
	case strings.Contains(key, "vari"):
		level = models.LevelVariesByLocation
	default:
		level = truncate(key, maxTokenLength)
	}
	return &level
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return strings.TrimSpace(string(r[:n]))
	}
	return s
}
