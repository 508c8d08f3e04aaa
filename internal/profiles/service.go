// Package profiles resolves preference profile ids against the registry
// loaded once at startup.
package profiles

import (
	"fmt"
	"sort"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/pkg/registry"
)

// Service is immutable after construction and safe for concurrent use.
type Service struct {
	version string
	byID    map[string]registry.Profile
	logger  logger.Logger
}

// Load reads and validates the registry at path. An empty path yields a
// service with no profiles.
func Load(path string, log logger.Logger) (*Service, error) {
	if path == "" {
		return New(&registry.ProfileRegistry{Version: "0"}, log)
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load profile registry %s: %w", path, err)
	}
	return New(reg, log)
}

func New(reg *registry.ProfileRegistry, log logger.Logger) (*Service, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		version: reg.Version,
		byID:    make(map[string]registry.Profile, len(reg.Profiles)),
		logger:  log.With(map[string]interface{}{"component": "profiles"}),
	}
	for _, p := range reg.Profiles {
		s.byID[p.ID] = p
	}

	s.logger.Info("profile registry loaded", map[string]interface{}{
		"version":       reg.Version,
		"profile_count": len(reg.Profiles),
	})
	return s, nil
}

// Resolve returns the profile context for id. An empty id is no profile; an
// unknown id is logged and treated the same way.
func (s *Service) Resolve(id string) *models.ProfileContext {
	if id == "" {
		return nil
	}
	p, ok := s.byID[id]
	if !ok {
		s.logger.Warn("unknown profile id, treating as none", map[string]interface{}{"profile_id": id})
		return nil
	}

	directives := append([]string{}, p.PromptDirectives...)
	bias := make(map[string]float64, len(p.RankingBias))
	for k, v := range p.RankingBias {
		bias[k] = v
	}
	return &models.ProfileContext{
		ID:               p.ID,
		Label:            p.Label,
		PromptDirectives: directives,
		RankingBias:      bias,
	}
}

// List returns the profiles sorted by id.
func (s *Service) List() []registry.Profile {
	out := make([]registry.Profile, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) Version() string { return s.version }
