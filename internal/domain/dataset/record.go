package dataset

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// Record is the on-disk shape of one training example: a chat-completions
// messages array, one JSON object per line.
type Record struct {
	Messages []Message `json:"messages"`
}

// Message is one entry in a record's conversation.
type Message struct {
	Role       string       `json:"role"`
	Content    string       `json:"content,omitempty"`
	ToolCalls  []RecordCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
}

// RecordCall is the wire form of a requested invocation inside an assistant
// message. Arguments are a JSON-encoded string, matching the function-calling
// convention of chat-completions APIs.
type RecordCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function RecordFunction `json:"function"`
}

type RecordFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// toolContent is the JSON carried in a tool-role message's content field.
type toolContent struct {
	Status  tool.Status     `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error_message,omitempty"`
}

// MarshalRecord renders an example as a single JSONL line (no trailing
// newline). The layout is: user message, assistant message carrying the tool
// calls, one tool message per result, then the final assistant message.
func MarshalRecord(ex Example) ([]byte, error) {
	msgs := []Message{{Role: "user", Content: ex.UserMessage}}

	if len(ex.ToolCalls) > 0 {
		assistant := Message{Role: "assistant"}
		for _, call := range ex.ToolCalls {
			args, err := json.Marshal(call.Arguments)
			if err != nil {
				return nil, fmt.Errorf("encode arguments for %s: %w", call.ID, err)
			}
			assistant.ToolCalls = append(assistant.ToolCalls, RecordCall{
				ID:   call.ID,
				Type: "function",
				Function: RecordFunction{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
		msgs = append(msgs, assistant)

		for _, res := range ex.ToolResults {
			content, err := json.Marshal(toolContent{
				Status:  res.Status,
				Payload: res.Payload,
				Error:   res.ErrorMessage,
			})
			if err != nil {
				return nil, fmt.Errorf("encode result for %s: %w", res.CallID, err)
			}
			msgs = append(msgs, Message{
				Role:       "tool",
				ToolCallID: res.CallID,
				Content:    string(content),
			})
		}
	}

	if ex.AssistantMessage != "" {
		msgs = append(msgs, Message{Role: "assistant", Content: ex.AssistantMessage})
	}

	return json.Marshal(Record{Messages: msgs})
}

// UnmarshalRecord parses one JSONL line back into an example. It is the
// inverse of MarshalRecord for well-formed records; malformed correlation
// surfaces as ErrSchemaInvariant via Assemble.
func UnmarshalRecord(line []byte) (Example, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Example{}, fmt.Errorf("decode record: %w", err)
	}

	var (
		userMsg      string
		assistantMsg string
		calls        []tool.Call
		results      []tool.Result
	)
	for _, msg := range rec.Messages {
		switch msg.Role {
		case "user":
			userMsg = msg.Content
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				for _, rc := range msg.ToolCalls {
					var args map[string]any
					if rc.Function.Arguments != "" {
						if err := json.Unmarshal([]byte(rc.Function.Arguments), &args); err != nil {
							return Example{}, fmt.Errorf("decode arguments for %s: %w", rc.ID, err)
						}
					}
					calls = append(calls, tool.Call{ID: rc.ID, Name: rc.Function.Name, Arguments: args})
				}
				continue
			}
			assistantMsg = msg.Content
		case "tool":
			var content toolContent
			if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
				return Example{}, fmt.Errorf("decode tool content for %s: %w", msg.ToolCallID, err)
			}
			results = append(results, tool.Result{
				CallID:       msg.ToolCallID,
				Status:       content.Status,
				Payload:      content.Payload,
				ErrorMessage: content.Error,
			})
		default:
			return Example{}, fmt.Errorf("decode record: unknown role %q", msg.Role)
		}
	}

	// The wire format carries no timestamp; decoded examples get a zero
	// CreatedAt.
	return Assemble(userMsg, assistantMsg, calls, results, time.Time{})
}
