// pkg/registry/schema.go
package registry

// ProfileRegistry is the on-disk preference profile registry.
type ProfileRegistry struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Profiles    []Profile `json:"profiles"`
}

type Profile struct {
	ID               string             `json:"id"`
	Label            string             `json:"label"`
	Description      string             `json:"description,omitempty"`
	PromptDirectives []string           `json:"prompt_directives"`
	RankingBias      map[string]float64 `json:"ranking_bias"`
}

const MaxBiasWeight = 5.0
