package nlu

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Category is one ordered {label, keywords} row of a keyword table.
type Category struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// GeneralRule maps broad keywords to a generic label unless a more specific
// keyword is also present.
type GeneralRule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Unless   []string `yaml:"unless"`
}

type Tables struct {
	Version            string      `yaml:"version"`
	Language           string      `yaml:"language"`
	Intents            []Category  `yaml:"intents"`
	Destinations       []Category  `yaml:"destinations"`
	GeneralDestination GeneralRule `yaml:"general_destination"`
	Accessibility      []Category  `yaml:"accessibility"`
}

// DefaultTables returns the embedded keyword tables.
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultPatterns)
}

// LoadTables reads keyword tables from path, or the embedded defaults when path is empty.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword tables: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse keyword tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.lower()
	return &t, nil
}

func (t *Tables) Validate() error {
	if len(t.Intents) == 0 {
		return fmt.Errorf("keyword tables: no intents defined")
	}
	for name, table := range map[string][]Category{
		"intents":       t.Intents,
		"destinations":  t.Destinations,
		"accessibility": t.Accessibility,
	} {
		for i, c := range table {
			if strings.TrimSpace(c.Label) == "" {
				return fmt.Errorf("keyword tables: %s[%d] has no label", name, i)
			}
			if len(c.Keywords) == 0 {
				return fmt.Errorf("keyword tables: %s[%d] (%s) has no keywords", name, i, c.Label)
			}
		}
	}
	if len(t.GeneralDestination.Keywords) > 0 && t.GeneralDestination.Label == "" {
		return fmt.Errorf("keyword tables: general_destination has keywords but no label")
	}
	return nil
}

// lower pre-lowercases every keyword so matching is a plain substring test.
func (t *Tables) lower() {
	for _, table := range [][]Category{t.Intents, t.Destinations, t.Accessibility} {
		for i := range table {
			table[i].Keywords = lowerAll(table[i].Keywords)
		}
	}
	t.GeneralDestination.Keywords = lowerAll(t.GeneralDestination.Keywords)
	t.GeneralDestination.Unless = lowerAll(t.GeneralDestination.Unless)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// FirstMatch returns the label of the first category with a keyword in text.
func FirstMatch(text string, table []Category) string {
	for _, c := range table {
		if containsAny(text, c.Keywords) {
			return c.Label
		}
	}
	return ""
}

// Destination applies the destination table, then the general rule.
func (t *Tables) Destination(text string) string {
	if label := FirstMatch(text, t.Destinations); label != "" {
		return label
	}
	g := t.GeneralDestination
	if containsAny(text, g.Keywords) && !containsAny(text, g.Unless) {
		return g.Label
	}
	return ""
}
