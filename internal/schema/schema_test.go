package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "success": { "type": "boolean" },
    "severity": { "type": "string", "enum": ["low", "medium", "high"] },
    "savings": { "type": "number" },
    "recommendations": { "type": "array", "items": { "type": "object" } }
  },
  "required": ["success", "severity"]
}`

func TestValidateAccepts(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"success":  true,
		"severity": "high",
		"savings":  12.5,
	}
	require.NoError(t, Validate("analyze", doc, testSchema))
}

func TestValidateMissingRequired(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"success": true}
	err := Validate("analyze", doc, testSchema)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "analyze", verr.Task)
	assert.Contains(t, verr.Fields, "severity")
}

func TestValidateEnumViolation(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"success": true, "severity": "catastrophic"}
	err := Validate("analyze", doc, testSchema)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "severity")
}

func TestValidateTypeMismatch(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"success": "yes", "severity": "low"}
	err := Validate("analyze", doc, testSchema)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "success")
}

func TestValidateBytes(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateBytes("analyze", []byte(`{"success":false,"severity":"low"}`), testSchema))
	require.Error(t, ValidateBytes("analyze", []byte(`{"severity":"low"}`), testSchema))
}

func TestValidateEmptySchemaIsNoop(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate("free-form", map[string]any{"anything": 1}, ""))
}
