package tool

import (
	"fmt"
	"math"
	"sort"
)

// Validate checks a call's arguments against the spec's parameter schema
// before execution: every required field present, every present field of the
// declared type, unknown extras rejected unless the schema allows them.
//
// Fields are checked in the schema's declared order, not the iteration order
// of the caller's argument map, so the first violation reported is the same
// on every run. No side effects; validating twice yields the same verdict.
func Validate(call Call, spec Spec) error {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return validateObject(args, spec.Parameters, "")
}

func validateObject(args map[string]any, schema Schema, path string) error {
	for _, p := range schema.Properties {
		field := joinPath(path, p.Name)
		value, present := args[p.Name]
		if !present {
			if schema.IsRequired(p.Name) {
				return &ValidationError{Field: field, Reason: "required field missing"}
			}
			continue
		}
		if err := validateValue(value, p.Schema, field); err != nil {
			return err
		}
	}

	// Required names without a declared property still demand presence.
	for _, name := range schema.Required {
		if _, declared := schema.property(name); declared {
			continue
		}
		if _, present := args[name]; !present {
			return &ValidationError{Field: joinPath(path, name), Reason: "required field missing"}
		}
	}

	if schema.AdditionalProperties {
		return nil
	}
	extras := make([]string, 0)
	for key := range args {
		if _, declared := schema.property(key); !declared {
			extras = append(extras, key)
		}
	}
	if len(extras) > 0 {
		// Sorted so the reported field does not depend on map iteration order.
		sort.Strings(extras)
		return &ValidationError{Field: joinPath(path, extras[0]), Reason: "unknown field"}
	}
	return nil
}

func validateValue(value any, schema Schema, field string) error {
	switch schema.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("expected string, got %T", value)}
		}
		if len(schema.Enum) > 0 && !containsString(schema.Enum, s) {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("value %q not in enum %v", s, schema.Enum)}
		}
	case "integer":
		switch n := value.(type) {
		case int, int32, int64:
		case float64:
			if n != math.Trunc(n) {
				return &ValidationError{Field: field, Reason: fmt.Sprintf("expected integer, got %v", n)}
			}
		default:
			return &ValidationError{Field: field, Reason: fmt.Sprintf("expected integer, got %T", value)}
		}
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return &ValidationError{Field: field, Reason: fmt.Sprintf("expected number, got %T", value)}
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("expected boolean, got %T", value)}
		}
	case "object":
		nested, ok := value.(map[string]any)
		if !ok {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("expected object, got %T", value)}
		}
		return validateObject(nested, schema, field)
	case "array":
		items, ok := value.([]any)
		if !ok {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("expected array, got %T", value)}
		}
		if schema.Items != nil {
			for i, item := range items {
				if err := validateValue(item, *schema.Items, fmt.Sprintf("%s[%d]", field, i)); err != nil {
					return err
				}
			}
		}
	default:
		// Untyped member schemas accept any value.
	}
	return nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
