package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// SchemaError reports a tool whose input schema does not compile or rejects
// its own minimal arguments.
type SchemaError struct {
	Tool string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ValidateManifest compiles every tool input schema and validates a sample
// instance holding a zero value for each required property. BuildManifest
// only emits known property types, so a failure on a generated manifest means
// the builder and the schema rules disagree.
func ValidateManifest(m *Manifest) error {
	var errs []error
	for i, tool := range m.Tools {
		if err := validateTool(i, tool); err != nil {
			errs = append(errs, &SchemaError{Tool: tool.Name, Err: err})
		}
	}
	return errors.Join(errs...)
}

func validateTool(i int, tool Tool) error {
	url := fmt.Sprintf("https://apidoc.local/tools/%d.json", i)

	doc, err := decode(tool.InputSchema)
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return fmt.Errorf("failed to add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	sample := make(map[string]any, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		sample[name] = zeroValue(tool.InputSchema.Properties[name].Type)
	}
	instance, err := decode(sample)
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("sample arguments rejected: %w", err)
	}
	return nil
}

// decode round-trips v through JSON into the value model the validator expects.
func decode(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func zeroValue(dataType string) any {
	switch dataType {
	case domain.TypeInteger, domain.TypeNumber:
		return 0
	case domain.TypeBoolean:
		return false
	case domain.TypeArray:
		return []any{}
	case domain.TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}
