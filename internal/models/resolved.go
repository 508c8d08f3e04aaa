package models

type ResolutionSource string

const (
	SourceNone          ResolutionSource = "none"
	SourceNLU           ResolutionSource = "nlu"
	SourceNER           ResolutionSource = "ner"
	SourceBothAgree     ResolutionSource = "both_agree"
	SourceNLUNormalized ResolutionSource = "nlu_normalized"
	SourceNEROverride   ResolutionSource = "ner_override"
	SourceNLUPreferred  ResolutionSource = "nlu_preferred"
)

// ResolvedEntities is the merged view of one NLU and one NER result.
type ResolvedEntities struct {
	Destination         *string                     `json:"destination"`
	Locations           []string                    `json:"locations"`
	TopLocation         *string                     `json:"top_location"`
	Accessibility       *string                     `json:"accessibility"`
	Timeframe           *string                     `json:"timeframe"`
	TransportPreference *string                     `json:"transport_preference"`
	Budget              *string                     `json:"budget"`
	ResolutionSource    map[string]ResolutionSource `json:"resolution_source"`
	Conflicts           []string                    `json:"conflicts"`
}
