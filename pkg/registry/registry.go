// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidRegistry = errors.New("PROFILE_REGISTRY_INVALID")
	ErrProfileExists   = errors.New("profile already exists")
	ErrProfileNotFound = errors.New("profile not found")
)

func LoadRegistry(path string) (*ProfileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

func ParseRegistry(data []byte) (*ProfileRegistry, error) {
	var reg ProfileRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	return &reg, nil
}

// Validate checks ids are present and unique, labels are set and every
// bias weight lies in [0, MaxBiasWeight].
func (r *ProfileRegistry) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(r.Profiles))

	for i, p := range r.Profiles {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			problems = append(problems, fmt.Sprintf("profiles[%d]: missing id", i))
		case seen[id]:
			problems = append(problems, fmt.Sprintf("profiles[%d]: duplicate id %s", i, id))
		}
		seen[id] = true

		if strings.TrimSpace(p.Label) == "" {
			problems = append(problems, fmt.Sprintf("profile %s: missing label", id))
		}

		keys := make([]string, 0, len(p.RankingBias))
		for k := range p.RankingBias {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if w := p.RankingBias[k]; w < 0 || w > MaxBiasWeight {
				problems = append(problems, fmt.Sprintf("profile %s: ranking_bias %s=%g outside [0,%g]", id, k, w, MaxBiasWeight))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRegistry, strings.Join(problems, "; "))
	}
	return nil
}

func (r *ProfileRegistry) Find(id string) (Profile, bool) {
	for _, p := range r.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Add appends p and bumps LastUpdated.
func (r *ProfileRegistry) Add(p Profile, now time.Time) error {
	if _, ok := r.Find(p.ID); ok {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.ID)
	}
	if p.PromptDirectives == nil {
		p.PromptDirectives = []string{}
	}
	if p.RankingBias == nil {
		p.RankingBias = map[string]float64{}
	}
	r.Profiles = append(r.Profiles, p)
	r.LastUpdated = now.Format(time.RFC3339)
	return nil
}

func (r *ProfileRegistry) Remove(id string, now time.Time) error {
	for i, p := range r.Profiles {
		if p.ID == id {
			r.Profiles = append(r.Profiles[:i], r.Profiles[i+1:]...)
			r.LastUpdated = now.Format(time.RFC3339)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// SaveRegistry writes reg as indented JSON, creating the directory if needed.
func SaveRegistry(reg *ProfileRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
