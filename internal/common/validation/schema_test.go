package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var briefingSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"branche", "unternehmensgroesse"},
	"properties": map[string]interface{}{
		"branche":             map[string]interface{}{"type": "string", "minLength": 1},
		"unternehmensgroesse": map[string]interface{}{"type": "string", "minLength": 1},
		"email":               map[string]interface{}{"type": "string", "format": "email"},
	},
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name       string
		input      map[string]interface{}
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid briefing with extra answers",
			input:     map[string]interface{}{"branche": "beratung", "unternehmensgroesse": "solo", "ki_knowhow": "mittel"},
			wantValid: true,
		},
		{
			name:       "missing required field",
			input:      map[string]interface{}{"branche": "beratung"},
			wantFields: []string{"unternehmensgroesse"},
		},
		{
			name:       "wrong type",
			input:      map[string]interface{}{"branche": 12, "unternehmensgroesse": "solo"},
			wantFields: []string{"branche"},
		},
		{
			name:       "bad email",
			input:      map[string]interface{}{"branche": "it", "unternehmensgroesse": "kmu", "email": "nope"},
			wantFields: []string{"email"},
		},
		{
			name:       "nil input",
			input:      nil,
			wantFields: []string{"branche", "unternehmensgroesse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateInput(tt.input, briefingSchema)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			for _, f := range tt.wantFields {
				assert.True(t, result.HasErrors(f), "expected error for %s, got %v", f, result.GetErrorMessages())
			}
		})
	}
}

func TestValidateInput_NestedRequired(t *testing.T) {
	schema := map[string]interface{}{
		"type":       "object",
		"required":   []interface{}{"briefing"},
		"properties": map[string]interface{}{"briefing": briefingSchema},
	}

	result, err := ValidateInput(map[string]interface{}{"briefing": map[string]interface{}{"branche": "it"}}, schema)
	require.NoError(t, err)
	assert.False(t, result.Valid)

	fieldErrs := result.GetErrorsForField("briefing")
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "briefing.unternehmensgroesse", fieldErrs[0].Field)
	assert.Equal(t, "REQUIRED_FIELD_MISSING", fieldErrs[0].Code)
}

func TestValidateInput_BrokenSchema(t *testing.T) {
	_, err := ValidateInput(map[string]interface{}{}, map[string]interface{}{"type": 42})
	assert.Error(t, err)
}

func TestValidateActivityNaming(t *testing.T) {
	assert.NoError(t, ValidateActivityNaming("report.document.generate"))
	assert.Error(t, ValidateActivityNaming("generate-report"))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("info@example.de"))
	assert.False(t, ValidateEmail("info@"))
}
