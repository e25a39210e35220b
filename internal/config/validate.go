package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

// ValidateSettings checks raw stagehand settings against the embedded
// schema before they are unmarshalled into Config. Violations are
// reported sorted so the message is stable across runs.
func ValidateSettings(settings map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(settings),
	)
	if err != nil {
		return fmt.Errorf("validate settings schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		violations = append(violations, schemaErr.String())
	}
	sort.Strings(violations)

	return fmt.Errorf("invalid stagehand settings: %s", strings.Join(violations, "; "))
}
