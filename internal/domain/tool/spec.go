package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema is a JSON-Schema-shaped parameter contract. Properties keep their
// declared order so validation failures enumerate fields deterministically,
// regardless of how the caller's argument map iterates.
type Schema struct {
	Type                 string
	Description          string
	Enum                 []string
	Properties           []Property
	Required             []string
	AdditionalProperties bool
	Items                *Schema
}

// Property is a named member of an object schema.
type Property struct {
	Name   string
	Schema Schema
}

// IsRequired reports whether name appears in the schema's required list.
func (s Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// property returns the member schema for name, if declared.
func (s Schema) property(name string) (Schema, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return Schema{}, false
}

// MarshalJSON renders the schema as a standard JSON-Schema object, keeping
// the declared property order in the output.
func (s Schema) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	b.WriteString(`"type":`)
	writeJSONString(&b, s.Type)

	if s.Description != "" {
		b.WriteString(`,"description":`)
		writeJSONString(&b, s.Description)
	}
	if len(s.Enum) > 0 {
		b.WriteString(`,"enum":[`)
		for i, v := range s.Enum {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(&b, v)
		}
		b.WriteByte(']')
	}
	if s.Type == "object" {
		b.WriteString(`,"properties":{`)
		for i, p := range s.Properties {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(&b, p.Name)
			b.WriteByte(':')
			sub, err := p.Schema.MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(sub)
		}
		b.WriteByte('}')
		if len(s.Required) > 0 {
			b.WriteString(`,"required":[`)
			for i, r := range s.Required {
				if i > 0 {
					b.WriteByte(',')
				}
				writeJSONString(&b, r)
			}
			b.WriteByte(']')
		}
		if !s.AdditionalProperties {
			b.WriteString(`,"additionalProperties":false`)
		}
	}
	if s.Type == "array" && s.Items != nil {
		b.WriteString(`,"items":`)
		sub, err := s.Items.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(sub)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeJSONString(b *bytes.Buffer, s string) {
	enc, _ := json.Marshal(s)
	b.Write(enc)
}

// Spec is the declared contract for one callable capability.
// Immutable once registered.
type Spec struct {
	Name        string
	Description string
	Parameters  Schema
}

// Definition is the external tool shape consumed by the chat-completion API:
// {type:"function", function:{name, description, parameters}}.
type Definition struct {
	Type     string       `json:"type"`
	Function FunctionStub `json:"function"`
}

// FunctionStub is the function member of a Definition.
type FunctionStub struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Definition converts the spec to the upstream function-calling shape.
func (s Spec) Definition() Definition {
	return Definition{
		Type: "function",
		Function: FunctionStub{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		},
	}
}

// Registry is the fixed name→spec/handler lookup table, built once at
// startup. It is not runtime-extensible: registration happens during
// assembly and the catalog is read-only afterwards.
type Registry struct {
	specs    map[string]Spec
	handlers map[string]Handler
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs:    make(map[string]Spec),
		handlers: make(map[string]Handler),
	}
}

// Register adds a spec and its handler. Fails with ErrDuplicateTool if the
// name is already present.
func (r *Registry) Register(spec Spec, h Handler) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" || h == nil {
		return fmt.Errorf("%w: empty name or nil handler", ErrUnknownTool)
	}
	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	spec.Name = name
	r.specs[name] = spec
	r.handlers[name] = h
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the spec and handler for name, or ErrUnknownTool.
func (r *Registry) Resolve(name string) (Spec, Handler, error) {
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return spec, r.handlers[name], nil
}

// Specs returns all registered specs in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Definitions returns the external function-calling shape for every spec,
// in registration order.
func (r *Registry) Definitions() []Definition {
	specs := r.Specs()
	out := make([]Definition, len(specs))
	for i, s := range specs {
		out[i] = s.Definition()
	}
	return out
}
