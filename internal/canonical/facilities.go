package canonical

import (
	"fmt"
	"strings"

	"tourism-workers/internal/common/textnorm"
)

const (
	maxFacilities  = 20
	maxTokenLength = 60
)

// CanonicalizeFacilities maps a facility list, or a comma (else semicolon)
// separated string, onto canonical tokens. Unknown phrases become snake_case
// tokens. Returns nil for absent or empty input.
func CanonicalizeFacilities(raw interface{}) []string {
	var items []string
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		items = v
	case []interface{}:
		for _, it := range v {
			if s, ok := scalarString(it); ok {
				items = append(items, s)
			}
		}
	case string:
		sep := ";"
		if strings.Contains(v, ",") {
			sep = ","
		}
		items = strings.Split(v, sep)
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if token := facilityToken(item); token != "" {
			out = append(out, token)
		}
		if len(out) == maxFacilities {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func facilityToken(item string) string {
	key := textnorm.Fold(item)
	if key == "" {
		return ""
	}
	if token, ok := vocabulary.Facilities[key]; ok {
		return token
	}
	for _, k := range vocabulary.facilityKeys {
		if strings.Contains(key, k) {
			return vocabulary.Facilities[k]
		}
	}
	return textnorm.SnakeCase(key, maxTokenLength)
}

func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64, int, int64, bool:
		return fmt.Sprint(s), true
	}
	return "", false
}
