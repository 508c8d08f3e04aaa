package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func querySchema() JSONSchema {
	return JSONSchema{
		Type:     "object",
		Required: []string{"query"},
		Properties: map[string]Property{
			"query":     {Type: "string", MinLength: IntPtr(1), MaxLength: IntPtr(2000)},
			"profileId": {Type: "string", Nullable: true},
			"language":  {Type: "string", Enum: []string{"es", "en"}},
			"options": {
				Type:     "object",
				Required: []string{"timeoutMs"},
				Properties: map[string]Property{
					"timeoutMs": {Type: "integer", Minimum: FloatPtr(1)},
				},
			},
		},
		AdditionalProperties: false,
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		valid     bool
		wantField string
		wantCode  string
	}{
		{
			name:  "valid minimal",
			input: map[string]interface{}{"query": "¿Cómo llego al Prado?"},
			valid: true,
		},
		{
			name:  "nullable profile",
			input: map[string]interface{}{"query": "hola", "profileId": nil},
			valid: true,
		},
		{
			name:      "missing query",
			input:     map[string]interface{}{},
			wantField: "query",
			wantCode:  "REQUIRED_FIELD_MISSING",
		},
		{
			name:      "empty query",
			input:     map[string]interface{}{"query": ""},
			wantField: "query",
			wantCode:  "MIN_LENGTH_VIOLATION",
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"query": 42},
			wantField: "query",
			wantCode:  "INVALID_TYPE",
		},
		{
			name:      "bad enum",
			input:     map[string]interface{}{"query": "x", "language": "xx"},
			wantField: "language",
			wantCode:  "INVALID_ENUM_VALUE",
		},
		{
			name:      "extra field",
			input:     map[string]interface{}{"query": "x", "unexpected": true},
			wantCode: "EXTRA_FIELD",
		},
		{
			name:      "nested required",
			input:     map[string]interface{}{"query": "x", "options": map[string]interface{}{}},
			wantField: "options.timeoutMs",
			wantCode:  "REQUIRED_FIELD_MISSING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateInput(tt.input, querySchema())
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
			if tt.valid {
				return
			}
			require.NotEmpty(t, res.Errors)
			errs := res.Errors
			if tt.wantField != "" {
				errs = res.GetErrorsForField(tt.wantField)
			}
			require.NotEmpty(t, errs, res.GetErrorMessages())
			assert.Equal(t, tt.wantCode, errs[0].Code)
		})
	}
}

func TestValidateDocument_BadSchema(t *testing.T) {
	res := ValidateDocument(map[string]interface{}{}, map[string]interface{}{"type": 12})
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("(root)"))
}
