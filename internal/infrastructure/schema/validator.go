// Package schema checks KPIResult documents against the published JSON Schema
// of the output contract.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

//go:embed kpi_result.schema.json
var kpiResultSchema []byte

const schemaURL = "kpi_result.schema.json"

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(kpiResultSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Raw returns the schema document.
func Raw() []byte {
	out := make([]byte, len(kpiResultSchema))
	copy(out, kpiResultSchema)
	return out
}

func (v *Validator) ValidateResult(result domain.KPIResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return v.ValidateJSON(data)
}

func (v *Validator) ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode result", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate result", err)
	}
	return nil
}
