// Package tool provides the tool catalog, argument validation, and the
// sandboxed handlers behind each callable capability. Specs are fixed after
// startup; read access needs no locking.
package tool

import (
	"context"
	"encoding/json"
)

// Status is the terminal outcome of a single tool invocation.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Call is one requested tool invocation within a turn. IDs are unique within
// the turn; Name must match a registered Spec.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the terminal outcome correlated to exactly one Call by CallID.
// Payload is present iff Status is ok; ErrorMessage iff error or timeout.
type Result struct {
	CallID       string          `json:"call_id"`
	Status       Status          `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// OK reports whether the invocation produced a payload.
func (r Result) OK() bool { return r.Status == StatusOK }

// Handler executes one validated call's underlying operation.
// Implementations must respect ctx cancellation and return a structured
// JSON payload or a typed error from this package's taxonomy.
type Handler interface {
	Execute(ctx context.Context, args map[string]any) (json.RawMessage, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, args map[string]any) (json.RawMessage, error)

func (f HandlerFunc) Execute(ctx context.Context, args map[string]any) (json.RawMessage, error) {
	return f(ctx, args)
}
