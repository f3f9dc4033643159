package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receiptradar/constants"
)

var (
	receiptSchemaOnce sync.Once
	receiptSchema     *jsonschema.Schema
	receiptSchemaErr  error
)

// CompileSchema compiles a schema map for repeated validation.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("receipt.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("receipt.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates data against a compiled schema.
func ValidateJSONAgainstSchema(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateReceiptJSON checks a vision answer against the receipt schema, which is
// compiled once on first use. Category is left unconstrained so that labels
// outside the grocery set can still be mapped by name.
func ValidateReceiptJSON(data []byte) error {
	receiptSchemaOnce.Do(func() {
		receiptSchema, receiptSchemaErr = CompileSchema(BuildReceiptJSONSchema(nil))
	})
	if receiptSchemaErr != nil {
		return receiptSchemaErr
	}
	return ValidateJSONAgainstSchema(receiptSchema, data)
}

// promptSchema is the schema shown to the model, with the category enum filled in.
func promptSchema() map[string]any {
	return BuildReceiptJSONSchema(constants.AsStringSlice())
}
