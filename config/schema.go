package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed workflow.schema.json
var workflowSchemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func workflowSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(workflowSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("decode workflow schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("workflow.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("add workflow schema: %w", err)
			return
		}

		schema, schemaErr = c.Compile("workflow.schema.json")
	})

	return schema, schemaErr
}

// validateSchema checks a YAML or JSON document against the workflow schema.
func validateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse workflow: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON value types.
	j, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("parse workflow: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return fmt.Errorf("parse workflow: %w", err)
	}

	sch, err := workflowSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(inst); err != nil {
		return &ValidationError{Field: "workflow", Message: err.Error()}
	}

	return nil
}
