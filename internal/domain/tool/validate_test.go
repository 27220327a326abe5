package tool

import (
	"errors"
	"testing"
)

func sampleSpec() Spec {
	return Spec{
		Name: "file_operations",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "operation", Schema: Schema{Type: "string", Enum: []string{"read", "write", "list"}}},
				{Name: "path", Schema: Schema{Type: "string"}},
				{Name: "retries", Schema: Schema{Type: "integer"}},
				{Name: "recursive", Schema: Schema{Type: "boolean"}},
				{Name: "meta", Schema: Schema{Type: "object", Properties: []Property{
					{Name: "owner", Schema: Schema{Type: "string"}},
				}}},
				{Name: "tags", Schema: Schema{Type: "array", Items: &Schema{Type: "string"}}},
			},
			Required: []string{"operation", "path"},
		},
	}
}

func TestValidate_MissingRequired_ReportsSchemaOrder(t *testing.T) {
	t.Parallel()

	// Both required fields missing: the first in declared order wins,
	// no matter how the argument map iterates.
	call := Call{ID: "c1", Name: "file_operations", Arguments: map[string]any{"retries": 2}}
	err := Validate(call, sampleSpec())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "operation" {
		t.Fatalf("expected first declared field %q reported, got %q", "operation", verr.Field)
	}
}

func TestValidate_RequiredWithoutDeclaredProperty_StillEnforced(t *testing.T) {
	t.Parallel()

	spec := Spec{
		Name: "custom",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "query", Schema: Schema{Type: "string"}},
			},
			Required:             []string{"query", "token"},
			AdditionalProperties: true,
		},
	}

	err := Validate(Call{ID: "c1", Name: "custom", Arguments: map[string]any{"query": "x"}}, spec)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "token" || verr.Reason != "required field missing" {
		t.Fatalf("got field %q reason %q", verr.Field, verr.Reason)
	}

	ok := Validate(Call{ID: "c2", Name: "custom", Arguments: map[string]any{"query": "x", "token": "t"}}, spec)
	if ok != nil {
		t.Fatalf("expected valid call, got %v", ok)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	t.Parallel()

	call := Call{ID: "c1", Name: "file_operations", Arguments: map[string]any{"path": "a.txt"}}
	first := Validate(call, sampleSpec())
	second := Validate(call, sampleSpec())

	if first == nil || second == nil {
		t.Fatalf("expected errors, got %v / %v", first, second)
	}
	if first.Error() != second.Error() {
		t.Fatalf("verdicts differ: %q vs %q", first.Error(), second.Error())
	}
}

func TestValidate_EnumViolation(t *testing.T) {
	t.Parallel()

	call := Call{ID: "c1", Arguments: map[string]any{"operation": "delete", "path": "a.txt"}}
	err := Validate(call, sampleSpec())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "operation" {
		t.Fatalf("expected field operation, got %q", verr.Field)
	}
}

func TestValidate_TypeMismatches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"string", map[string]any{"operation": "read", "path": 42}, "path"},
		{"integer", map[string]any{"operation": "read", "path": "a", "retries": 1.5}, "retries"},
		{"boolean", map[string]any{"operation": "read", "path": "a", "recursive": "yes"}, "recursive"},
		{"object", map[string]any{"operation": "read", "path": "a", "meta": "owner"}, "meta"},
		{"nested", map[string]any{"operation": "read", "path": "a", "meta": map[string]any{"owner": 7}}, "meta.owner"},
		{"array item", map[string]any{"operation": "read", "path": "a", "tags": []any{"x", 3}}, "tags[1]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(Call{ID: "c", Arguments: tc.args}, sampleSpec())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestValidate_IntegerAcceptsWholeFloat(t *testing.T) {
	t.Parallel()

	// JSON decoding delivers numbers as float64; whole values pass.
	args := map[string]any{"operation": "read", "path": "a", "retries": float64(3)}
	if err := Validate(Call{ID: "c", Arguments: args}, sampleSpec()); err != nil {
		t.Fatalf("expected valid call, got %v", err)
	}
}

func TestValidate_UnknownField_Rejected(t *testing.T) {
	t.Parallel()

	args := map[string]any{"operation": "read", "path": "a", "zzz": 1, "aaa": 2}
	err := Validate(Call{ID: "c", Arguments: args}, sampleSpec())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// Extras are reported in sorted order for determinism.
	if verr.Field != "aaa" {
		t.Fatalf("expected field aaa, got %q", verr.Field)
	}
}

func TestValidate_UnknownField_AllowedWhenSchemaPermits(t *testing.T) {
	t.Parallel()

	spec := sampleSpec()
	spec.Parameters.AdditionalProperties = true
	args := map[string]any{"operation": "read", "path": "a", "anything": "goes"}
	if err := Validate(Call{ID: "c", Arguments: args}, spec); err != nil {
		t.Fatalf("expected valid call, got %v", err)
	}
}

func TestValidate_NilArguments_OnlyRequiredMatter(t *testing.T) {
	t.Parallel()

	spec := Spec{Parameters: Schema{Type: "object", Properties: []Property{
		{Name: "note", Schema: Schema{Type: "string"}},
	}}}
	if err := Validate(Call{ID: "c"}, spec); err != nil {
		t.Fatalf("expected valid call with no args and no required fields, got %v", err)
	}
}
