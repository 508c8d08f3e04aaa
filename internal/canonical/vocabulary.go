package canonical

import (
	_ "embed"
	"fmt"
	"sort"

	"tourism-workers/internal/common/textnorm"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Vocabulary maps folded free-text phrases to canonical tokens.
type Vocabulary struct {
	Version    string            `yaml:"version"`
	Facilities map[string]string `yaml:"facilities"`
	Levels     map[string]string `yaml:"levels"`

	// facility keys in a fixed order for the substring scan
	facilityKeys []string
}

var vocabulary = mustVocabulary(vocabularyYAML)

func mustVocabulary(data []byte) *Vocabulary {
	v, err := ParseVocabulary(data)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseVocabulary folds every key and adds each canonical token as a key
// mapping to itself, so canonical output maps back onto itself.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var raw Vocabulary
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(raw.Facilities) == 0 || len(raw.Levels) == 0 {
		return nil, fmt.Errorf("vocabulary: facilities and levels are required")
	}

	v := &Vocabulary{
		Version:    raw.Version,
		Facilities: foldKeys(raw.Facilities),
		Levels:     foldKeys(raw.Levels),
	}
	for k := range v.Facilities {
		v.facilityKeys = append(v.facilityKeys, k)
	}
	// longer phrases first, then alphabetical
	sort.Slice(v.facilityKeys, func(i, j int) bool {
		a, b := v.facilityKeys[i], v.facilityKeys[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return v, nil
}

func foldKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)*2)
	for k, token := range in {
		out[textnorm.Fold(k)] = token
	}
	for _, token := range in {
		out[token] = token
	}
	return out
}
