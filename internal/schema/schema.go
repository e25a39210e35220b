// Package schema validates agent task results against their declared
// JSON schemas.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports a result that does not satisfy its task's
// output schema. Fields lists the violated fields; the step is a
// terminal failure, results are never coerced into shape.
type ValidationError struct {
	Task    string
	Fields  []string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("task %q output schema violation: %s", e.Task, strings.Join(e.Reasons, "; "))
}

// ValidateBytes validates a raw JSON document against a schema.
func ValidateBytes(task string, doc []byte, schemaJSON string) error {
	return validate(task, gojsonschema.NewBytesLoader(doc), schemaJSON)
}

// Validate validates a decoded Go value against a schema.
func Validate(task string, doc any, schemaJSON string) error {
	return validate(task, gojsonschema.NewGoLoader(doc), schemaJSON)
}

func validate(task string, documentLoader gojsonschema.JSONLoader, schemaJSON string) error {
	if strings.TrimSpace(schemaJSON) == "" {
		return nil
	}
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate output schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Task: task}
	seen := make(map[string]bool)
	for _, schemaErr := range result.Errors() {
		field := schemaErr.Field()
		if prop, ok := schemaErr.Details()["property"].(string); ok && schemaErr.Type() == "required" {
			if field == "(root)" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
		if !seen[field] {
			seen[field] = true
			verr.Fields = append(verr.Fields, field)
		}
		verr.Reasons = append(verr.Reasons, schemaErr.String())
	}
	sort.Strings(verr.Fields)
	sort.Strings(verr.Reasons)
	return verr
}
