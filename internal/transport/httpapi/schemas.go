// internal/transport/httpapi/schemas.go
package httpapi

import (
	"github.com/xeipuuv/gojsonschema"

	"venture-match-engine/internal/common/errors"
)

const swipeRequestSchema = `{
	"type": "object",
	"required": ["targetId", "direction"],
	"additionalProperties": false,
	"properties": {
		"targetId": {"type": "string", "minLength": 1},
		"direction": {"type": "string", "enum": ["left", "right"]}
	}
}`

const preferencesSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"industries": {"type": "array", "items": {"type": "string", "minLength": 1}},
		"investmentMin": {"type": "integer", "minimum": 0},
		"investmentMax": {"type": "integer", "minimum": 0},
		"teamSizeMin": {"type": "integer", "minimum": 0},
		"teamSizeMax": {"type": "integer", "minimum": 0},
		"timeline": {"type": "string", "enum": ["immediate", "short", "medium", "long"]},
		"location": {"type": "string"},
		"verificationLevels": {"type": "array", "items": {"type": "string"}}
	}
}`

var (
	swipeSchema = gojsonschema.NewStringLoader(swipeRequestSchema)
	prefsSchema = gojsonschema.NewStringLoader(preferencesSchema)
)

// validateJSON checks a raw request body against a schema and converts
// schema violations into field-level validation errors.
func validateJSON(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewValidationError("request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}

	fields := make([]errors.FieldError, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		fields = append(fields, errors.FieldError{
			Field:   violation.Field(),
			Message: violation.Description(),
		})
	}
	return errors.NewValidationError("request body failed validation", fields...)
}
