package models

// ProfileContext is the per-request view of a user preference profile.
type ProfileContext struct {
	ID               string             `json:"id"`
	Label            string             `json:"label"`
	PromptDirectives []string           `json:"prompt_directives"`
	RankingBias      map[string]float64 `json:"ranking_bias"`
}
