package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const layoutSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "fieldMappings"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 100},
    "language": {"type": "string", "pattern": "^([a-z]{3}(\\+[a-z]{3})*)?$"},
    "dateFormat": {"type": "string"},
    "fieldMappings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "regex"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "key": {"type": "string"},
          "regex": {"type": "string", "minLength": 1},
          "position": {"type": "string"},
          "example": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("layout.json", bytes.NewReader([]byte(layoutSchema))); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("layout.json")
	})
	return schema, schemaErr
}

// ValidateDocument checks a JSON layout document against the layout schema.
func ValidateDocument(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("layout does not match schema: %w", err)
	}
	return nil
}
