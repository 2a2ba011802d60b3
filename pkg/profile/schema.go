package profile

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// importSchema constrains JSON profile imports before conversion. Extra
// fields are allowed; the importer ignores what it does not know.
const importSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "enabled": {"type": "boolean"},
    "variables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value"],
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
          "value": {"type": "string"},
          "is_secret": {"type": "boolean"},
          "enabled": {"type": "boolean"},
          "description": {"type": "string"}
        }
      }
    },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "headers"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "enabled": {"type": "boolean"},
          "condition": {"type": "string"},
          "pattern": {
            "type": "object",
            "properties": {
              "protocol": {"type": "string"},
              "domain": {"type": "string"},
              "path": {"type": "string"}
            }
          },
          "headers": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "target": {"type": "string", "enum": ["request", "response"]},
                "operation": {"type": "string", "enum": ["set", "append", "remove"]},
                "name": {"type": "string", "minLength": 1},
                "value": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

// ValidateImportJSON validates a JSON profile document against the import
// schema and aggregates every violation into one error.
func ValidateImportJSON(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(importSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("profile: schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, desc := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += fmt.Sprintf("%s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("profile: import validation failed: %s", errMsg)
	}

	return nil
}
