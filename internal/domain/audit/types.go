package audit

import (
	"time"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// TopicInvocationSettled is the event bus topic carrying settled invocations.
const TopicInvocationSettled = "invocation.settled"

// InvocationEvent is one audit log entry: a single settled tool call.
// Append-only — once written it is never modified.
type InvocationEvent struct {
	ID         string      `json:"id"`
	TurnID     string      `json:"turn_id"`
	CallID     string      `json:"call_id"`
	ToolName   string      `json:"tool_name"`
	Status     tool.Status `json:"status"`
	Attempts   int         `json:"attempts"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
