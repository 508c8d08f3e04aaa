package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for worker input/output schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
	Nullable    bool                `json:"-"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ToMap renders the schema as a draft-07 document for gojsonschema.
func (s JSONSchema) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"type":                 orDefault(s.Type, "object"),
		"additionalProperties": s.AdditionalProperties,
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.toMap()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

func (p Property) toMap() map[string]interface{} {
	out := map[string]interface{}{}
	if p.Type != "" {
		if p.Nullable {
			out["type"] = []string{p.Type, "null"}
		} else {
			out["type"] = p.Type
		}
	}
	if p.Minimum != nil {
		out["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		out["maximum"] = *p.Maximum
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Pattern != nil {
		out["pattern"] = *p.Pattern
	}
	if p.MinLength != nil {
		out["minLength"] = *p.MinLength
	}
	if p.MaxLength != nil {
		out["maxLength"] = *p.MaxLength
	}
	if p.Items != nil {
		out["items"] = p.Items.toMap()
	}
	if len(p.Properties) > 0 {
		props := make(map[string]interface{}, len(p.Properties))
		for name, child := range p.Properties {
			props[name] = child.toMap()
		}
		out["properties"] = props
	}
	if len(p.Required) > 0 {
		out["required"] = p.Required
	}
	return out
}

// ValidateInput validates a decoded job payload against schema.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	return ValidateDocument(input, schema.ToMap())
}

// ValidateDocument validates any Go value against a schema given as a Go map.
// A schema that fails to compile is reported as a single SCHEMA_ERROR.
func ValidateDocument(doc interface{}, schema map[string]interface{}) *ValidationResult {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(re),
			Message: re.Description(),
			Code:    codeOf(re.Type()),
		})
	}
	return out
}

func fieldOf(re gojsonschema.ResultError) string {
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if field == "(root)" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

func codeOf(t string) string {
	switch t {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "invalid_type":
		return "INVALID_TYPE"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	case "pattern":
		return "PATTERN_MISMATCH"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "number_gte":
		return "MINIMUM_VIOLATION"
	case "number_lte":
		return "MAXIMUM_VIOLATION"
	default:
		return strings.ToUpper(t)
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and its children
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func IntPtr(i int) *int { return &i }

func FloatPtr(f float64) *float64 { return &f }
