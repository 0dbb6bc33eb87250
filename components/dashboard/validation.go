package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/specification.json
var schemaFS embed.FS

const specificationSchema = "schemas/specification.json"

// SpecificationValidator checks manually supplied specification documents
// against the bundled JSON schema before they are decoded.
type SpecificationValidator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewSpecificationValidator builds a validator; the schema compiles lazily.
func NewSpecificationValidator() *SpecificationValidator {
	return &SpecificationValidator{}
}

// Validate parses raw as JSON and validates it against the schema.
func (v *SpecificationValidator) Validate(raw []byte) error {
	schema, err := v.schema()
	if err != nil {
		return err
	}
	var payload any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return fmt.Errorf("dashboard: specification is not valid JSON: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("dashboard: specification failed validation: %w", err)
	}
	return nil
}

func (v *SpecificationValidator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		data, err := schemaFS.ReadFile(specificationSchema)
		if err != nil {
			v.err = fmt.Errorf("dashboard: read schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(specificationSchema, bytes.NewReader(data)); err != nil {
			v.err = fmt.Errorf("dashboard: load schema: %w", err)
			return
		}
		v.compiled, v.err = compiler.Compile(specificationSchema)
		if v.err != nil {
			v.err = fmt.Errorf("dashboard: compile schema: %w", v.err)
		}
	})
	return v.compiled, v.err
}
