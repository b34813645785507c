package recognizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// recognizerFileSchema is the JSON Schema for recognizer YAML files.
const recognizerFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Veil Recognizer File",
  "type": "object",
  "required": ["recognizers"],
  "additionalProperties": false,
  "properties": {
    "recognizers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "supported_entity"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1, "pattern": "^[a-z0-9_]+$"},
          "supported_entity": {"type": "string", "minLength": 1},
          "enabled": {"type": "boolean"},
          "priority": {"type": "integer"},
          "validator": {"type": "string", "enum": ["luhn", "iban"]},
          "context": {"type": "array", "items": {"type": "string"}},
          "patterns": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["name", "regex", "score"],
              "additionalProperties": false,
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "regex": {"type": "string", "minLength": 1},
                "score": {"type": "number", "minimum": 0, "maximum": 1}
              }
            }
          }
        }
      }
    }
  }
}`

// ValidateSchema validates recognizer YAML bytes against the file schema.
// The YAML is first converted to JSON because gojsonschema operates on JSON.
func ValidateSchema(yamlBytes []byte) error {
	var raw interface{}
	if err := yaml.Unmarshal(yamlBytes, &raw); err != nil {
		return fmt.Errorf("parsing YAML for schema validation: %w", err)
	}

	jsonBytes, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(recognizerFileSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return fmt.Errorf("recognizer file is invalid: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// normalizeYAML rewrites map[interface{}]interface{} trees (yaml.v3 only
// produces these for non-string keys, but nested decoding can still surface
// them) into map[string]interface{} so json.Marshal accepts the value.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, inner := range val {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(inner)
		}
		return m
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = normalizeYAML(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = normalizeYAML(inner)
		}
		return val
	default:
		return v
	}
}
