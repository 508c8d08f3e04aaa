package canonicalizedata

import "tourism-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"rawData": {
				Type:        "object",
				Description: "Record with venue, routes and accessibility sections",
			},
			"llmText": {
				Type:        "string",
				Description: "Generated answer that may end with a fenced json block",
				MaxLength:   validation.IntPtr(20000),
			},
			"existing": {
				Type:        "object",
				Description: "Canonical record the extracted block is merged into",
				Nullable:    true,
			},
		},
		AdditionalProperties: true,
	}
}
