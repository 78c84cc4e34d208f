package templates

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validate checks extracted fields against the entry's JSON schema. Entries without a schema accept anything.
func (e Entry) Validate(fields map[string]string) error {
	if len(e.Schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(e.Schema)
	dataLoader := gojsonschema.NewGoLoader(fields)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("invalid field schema for %s: %w", e.DocumentType, err)
	}

	if !result.Valid() {
		var errs []string
		for _, resultErr := range result.Errors() {
			errs = append(errs, resultErr.String())
		}

		return fmt.Errorf("field schema validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
