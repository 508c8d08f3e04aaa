package analyzequery

import "tourism-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"text"},
		Properties: map[string]validation.Property{
			"text": {
				Type:        "string",
				Description: "Free-text tourism question",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(4000),
			},
			"language": {
				Type:        "string",
				Description: "ISO 639-1 language code, defaults to es",
				Pattern:     strPtr("^[A-Za-z]{2}$"),
			},
			"profileId": {
				Type:        "string",
				Description: "Accessibility profile identifier",
				MaxLength:   validation.IntPtr(100),
			},
		},
		// process instances carry unrelated variables
		AdditionalProperties: true,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"runId", "responseText", "pipelineSteps", "degraded"},
		Properties: map[string]validation.Property{
			"runId":         {Type: "string", Description: "Pipeline run identifier"},
			"responseText":  {Type: "string", Description: "Generated answer without the structured block"},
			"intent":        {Type: "string", Description: "Detected intent"},
			"entities":      {Type: "object", Description: "Resolved entities"},
			"tourismData":   {Type: "object", Description: "Canonical tourism record", Nullable: true},
			"pipelineSteps": {Type: "array", Description: "Ordered stage log"},
			"toolResults":   {Type: "object", Description: "Raw stage outputs by stage name"},
			"profileId":     {Type: "string", Description: "Profile applied to the answer"},
			"degraded":      {Type: "boolean", Description: "True when the fallback text was used"},
		},
		AdditionalProperties: false,
	}
}

func strPtr(s string) *string {
	return &s
}
