package upstream

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/course_data.schema.json
var courseDataSchemaJSON []byte

//go:embed schemas/quiz_result.schema.json
var quizResultSchemaJSON []byte

// schemaSet holds the compiled schemas the client validates backend
// payloads against before any state changes.
type schemaSet struct {
	courseData *jsonschema.Schema
	quizResult *jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("course_data.schema.json", bytes.NewReader(courseDataSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add course data schema: %w", err)
	}
	if err := compiler.AddResource("quiz_result.schema.json", bytes.NewReader(quizResultSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add quiz result schema: %w", err)
	}

	courseData, err := compiler.Compile("course_data.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile course data schema: %w", err)
	}
	quizResult, err := compiler.Compile("quiz_result.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile quiz result schema: %w", err)
	}

	return &schemaSet{courseData: courseData, quizResult: quizResult}, nil
}

// validate checks raw JSON against a schema. The payload is decoded
// into a generic value because the validator walks interface trees.
func validate(schema *jsonschema.Schema, raw json.RawMessage) error {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("payload failed validation: %w", err)
	}
	return nil
}
