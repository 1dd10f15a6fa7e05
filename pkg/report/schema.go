package report

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a JSON report does not match the
// statistics schema.
var ErrSchemaViolation = errors.New("report does not match schema")

//go:embed stats.schema.json
var statsSchema []byte

// StatsSchema returns the JSON schema of the json output format.
func StatsSchema() []byte {
	return statsSchema
}

// ValidateJSON checks a json-format report against the statistics schema.
func ValidateJSON(doc []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(statsSchema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}
