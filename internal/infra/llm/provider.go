// Package llm defines the model-agnostic chat-completion surface and its
// adapters. The rest of the application never talks to a vendor API directly.
package llm

import (
	"context"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// Provider is the vendor-agnostic interface for function-calling chat models.
type Provider interface {
	// ChatCompletion performs a non-streaming chat completion. The response
	// carries either assistant text or requested tool calls (or both).
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}

// ChatRequest is one completion request. Tools advertises the callable
// catalog in function-calling wire form.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []tool.Definition
	Temperature float64
	MaxTokens   int
}

// Message is one conversation entry in chat-completions form.
type Message struct {
	Role       string            `json:"role"`
	Content    string            `json:"content,omitempty"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
}

// ToolCallRequest is a model-requested invocation. Arguments arrive as a
// JSON-encoded string per the function-calling convention.
type ToolCallRequest struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the provider's reply.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCallRequest
	StopReason string
}

// ModelMeta describes a provider/model pair.
type ModelMeta struct {
	ID        string
	Provider  string
	MaxTokens int
}
