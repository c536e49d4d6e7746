package tuning

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "protocol_version": {"type": "string"},
    "field": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "size": {"type": "integer", "minimum": 1},
        "max_size": {"type": "integer", "minimum": 1},
        "workers": {"type": "integer", "minimum": 0},
        "light_passes": {"type": "integer", "minimum": 0, "maximum": 255},
        "solver": {"enum": ["in_place", "double_buffer"]},
        "height": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "basis": {"enum": ["simplex", "perlin"]},
            "seed": {"type": "integer"},
            "octaves": {"type": "integer", "minimum": 1, "maximum": 16},
            "frequency": {"type": "number", "exclusiveMinimum": 0},
            "lacunarity": {"type": "number", "exclusiveMinimum": 0},
            "persistence": {"type": "number", "minimum": 0}
          }
        },
        "cave": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "seed": {"type": "integer"},
            "frequency": {"type": "number", "exclusiveMinimum": 0},
            "octaves": {"type": "integer", "minimum": 1, "maximum": 8},
            "cutoff": {"type": "number"},
            "range_function": {"enum": ["euclidean", "euclidean_squared", "manhattan", "chebyshev"]},
            "enable_range": {"type": "boolean"},
            "displacement": {"type": "number"}
          }
        }
      }
    },
    "camera": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "tick_rate_hz": {"type": "integer", "minimum": 1, "maximum": 1000},
        "mouse_sensitivity": {"type": "number"},
        "speed": {"type": "number", "minimum": 0},
        "viewport": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "width": {"type": "integer", "minimum": 1},
            "height": {"type": "integer", "minimum": 1}
          }
        }
      }
    },
    "cameras": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["spawn"],
        "properties": {
          "name": {"type": "string"},
          "spawn": {"type": "array", "minItems": 3, "maxItems": 3, "items": {"type": "number"}}
        }
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("tuning.schema.json", schemaJSON)

// validateDocument checks raw YAML against the tuning schema. The document is
// round-tripped through JSON so numbers reach the validator as float64.
func validateDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("tuning document is not JSON-compatible: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
