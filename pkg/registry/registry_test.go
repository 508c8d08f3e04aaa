package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistry() *ProfileRegistry {
	return &ProfileRegistry{
		Version:     "1.0.0",
		LastUpdated: "2025-01-01T00:00:00Z",
		Profiles: []Profile{
			{
				ID:               "night_leisure",
				Label:            "Ocio nocturno",
				PromptDirectives: []string{"Prioriza conciertos y locales nocturnos"},
				RankingBias:      map[string]float64{"venue_type.music_venue": 2.0},
			},
			{ID: "cultural", Label: "Cultural"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ProfileRegistry)
		wantErr string
	}{
		{name: "valid", mutate: func(r *ProfileRegistry) {}},
		{name: "empty registry", mutate: func(r *ProfileRegistry) { r.Profiles = nil }},
		{name: "missing id", mutate: func(r *ProfileRegistry) { r.Profiles[1].ID = " " }, wantErr: "missing id"},
		{name: "duplicate id", mutate: func(r *ProfileRegistry) { r.Profiles[1].ID = "night_leisure" }, wantErr: "duplicate id night_leisure"},
		{name: "missing label", mutate: func(r *ProfileRegistry) { r.Profiles[0].Label = "" }, wantErr: "missing label"},
		{name: "bias too high", mutate: func(r *ProfileRegistry) { r.Profiles[0].RankingBias["x"] = 5.5 }, wantErr: "ranking_bias x=5.5"},
		{name: "negative bias", mutate: func(r *ProfileRegistry) { r.Profiles[0].RankingBias["y"] = -1 }, wantErr: "ranking_bias y=-1"},
		{name: "bias at bound", mutate: func(r *ProfileRegistry) { r.Profiles[0].RankingBias["z"] = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistry()
			tt.mutate(reg)

			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRegistry)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddRemove(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg := validRegistry()

	require.NoError(t, reg.Add(Profile{ID: "family", Label: "Familias"}, now))
	p, ok := reg.Find("family")
	require.True(t, ok)
	assert.NotNil(t, p.PromptDirectives)
	assert.NotNil(t, p.RankingBias)
	assert.Equal(t, "2025-06-01T12:00:00Z", reg.LastUpdated)

	assert.ErrorIs(t, reg.Add(Profile{ID: "family", Label: "x"}, now), ErrProfileExists)

	require.NoError(t, reg.Remove("family", now))
	_, ok = reg.Find("family")
	assert.False(t, ok)
	assert.ErrorIs(t, reg.Remove("family", now), ErrProfileNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles.json")
	reg := validRegistry()

	require.NoError(t, SaveRegistry(reg, path))
	loaded, err := LoadRegistry(path)
	require.NoError(t, err)

	assert.Equal(t, reg, loaded)
}

func TestParseRegistry_Invalid(t *testing.T) {
	_, err := ParseRegistry([]byte(`{"profiles": [`))
	assert.ErrorIs(t, err, ErrInvalidRegistry)
}
