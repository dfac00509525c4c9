package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

const wireRecordSchemaURL = "https://codecast.local/schemas/wire-record.json"

const wireRecordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "steps", "audioBase64", "audioMimeType"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "author": {"type": "string"},
    "courseId": {"type": "string"},
    "chapterId": {"type": "string"},
    "lessonId": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "timestamp"],
        "properties": {
          "code": {"type": "string"},
          "timestamp": {"type": "number", "minimum": 0}
        }
      }
    },
    "audioBase64": {"type": "string", "contentEncoding": "base64"},
    "audioMimeType": {"type": "string", "pattern": "^audio/"},
    "audioFileName": {"type": "string"},
    "durationMs": {"type": "integer", "minimum": 0}
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(wireRecordSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(wireRecordSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(wireRecordSchemaURL)
})

// ValidateJSON checks raw JSON against the wire record schema.
func ValidateJSON(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile wire schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return errmodel.E(errmodel.KindMalformedRecord, "codec.validate", err)
	}
	if err := sch.Validate(inst); err != nil {
		return errmodel.E(errmodel.KindMalformedRecord, "codec.validate", err)
	}
	return nil
}

// ParseWireRecord validates and decodes a JSON wire record.
func ParseWireRecord(data []byte) (WireRecord, error) {
	if err := ValidateJSON(data); err != nil {
		return WireRecord{}, err
	}
	var w WireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return WireRecord{}, errmodel.E(errmodel.KindMalformedRecord, "codec.parse", err)
	}
	return w, nil
}
