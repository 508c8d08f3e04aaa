package ner

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"tourism-workers/internal/common/textnorm"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var defaultGazetteer []byte

const gazetteerModel = "gazetteer"

type Place struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Aliases []string `yaml:"aliases"`
}

// Gazetteer is an immutable set of place names with pre-folded aliases.
type Gazetteer struct {
	Version string  `yaml:"version"`
	Places  []Place `yaml:"places"`

	aliases []alias
}

type alias struct {
	folded string
	place  int
}

func DefaultGazetteer() (*Gazetteer, error) {
	return ParseGazetteer(defaultGazetteer)
}

// LoadGazetteer reads a gazetteer file, or the embedded one when path is empty.
func LoadGazetteer(path string) (*Gazetteer, error) {
	if path == "" {
		return DefaultGazetteer()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	return ParseGazetteer(data)
}

func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	for i, p := range g.Places {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("gazetteer: places[%d] has no name", i)
		}
		names := append([]string{p.Name}, p.Aliases...)
		for _, n := range names {
			if f := textnorm.Fold(n); f != "" {
				g.aliases = append(g.aliases, alias{folded: f, place: i})
			}
		}
	}
	// longest aliases first so "museo del prado" is preferred over "prado"
	sort.SliceStable(g.aliases, func(i, j int) bool {
		return len(g.aliases[i].folded) > len(g.aliases[j].folded)
	})
	return &g, nil
}

type span struct {
	start, end int
	place      int
}

// Match returns the names of places mentioned in text, ordered by first
// occurrence. Overlapping mentions resolve to the longest alias.
func (g *Gazetteer) Match(text string) []string {
	folded := textnorm.Fold(text)
	if folded == "" {
		return nil
	}

	var taken []span
	for _, a := range g.aliases {
		offset := 0
		for offset < len(folded) {
			i := textnorm.IndexWord(folded[offset:], a.folded)
			if i < 0 {
				break
			}
			s := span{start: offset + i, end: offset + i + len(a.folded), place: a.place}
			if !overlaps(taken, s) {
				taken = append(taken, s)
			}
			offset = s.end
		}
	}

	sort.Slice(taken, func(i, j int) bool { return taken[i].start < taken[j].start })
	names := make([]string, 0, len(taken))
	for _, s := range taken {
		names = append(names, g.Places[s.place].Name)
	}
	return names
}

func overlaps(taken []span, s span) bool {
	for _, t := range taken {
		if s.start < t.end && t.start < s.end {
			return true
		}
	}
	return false
}

// GazetteerProvider is the dependency-free NER fallback.
type GazetteerProvider struct {
	gazetteer       *Gazetteer
	defaultLanguage string
}

func NewGazetteerProvider(g *Gazetteer, opts providers.Options) *GazetteerProvider {
	lang := strings.ToLower(opts.DefaultLanguage)
	if lang == "" {
		lang = "es"
	}
	return &GazetteerProvider{gazetteer: g, defaultLanguage: lang}
}

func (p *GazetteerProvider) ExtractLocations(_ context.Context, text, language string) models.LocationResult {
	language = strings.ToLower(language)
	if language == "" {
		language = p.defaultLanguage
	}
	if strings.TrimSpace(text) == "" {
		return models.EmptyLocationResult(ProviderGazetteer, "", language, models.LocationStatusEmptyInput)
	}
	return models.NewLocationResult(p.gazetteer.Match(text), ProviderGazetteer, gazetteerModel, language)
}

func (p *GazetteerProvider) IsAvailable() bool { return true }

func (p *GazetteerProvider) SupportedLanguages() []string { return []string{"en", "es"} }

func (p *GazetteerProvider) Info() map[string]interface{} {
	return map[string]interface{}{
		"provider":         ProviderGazetteer,
		"model":            gazetteerModel,
		"available":        true,
		"default_language": p.defaultLanguage,
		"version":          p.gazetteer.Version,
		"places":           len(p.gazetteer.Places),
	}
}
