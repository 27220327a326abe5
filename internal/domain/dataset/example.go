// Package dataset assembles settled turns into training examples and
// persists them as an append-only JSONL corpus.
package dataset

import (
	"errors"
	"fmt"
	"time"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// ErrSchemaInvariant marks an example whose calls and results do not line up.
// Such an example is rejected before it ever reaches storage.
var ErrSchemaInvariant = errors.New("example schema invariant violated")

// Example is one complete assembled interaction: the user's request, the
// tool work the assistant did, and the assistant's final answer.
type Example struct {
	UserMessage      string
	AssistantMessage string
	ToolCalls        []tool.Call
	ToolResults      []tool.Result
	CreatedAt        time.Time
}

// Assemble builds an Example, enforcing the call/result correlation
// invariants: equal lengths, unique call IDs, and results index-aligned with
// their calls. Both slices empty is a valid tool-free exchange.
func Assemble(userMsg, assistantMsg string, calls []tool.Call, results []tool.Result, at time.Time) (Example, error) {
	if len(calls) != len(results) {
		return Example{}, fmt.Errorf("%w: %d calls but %d results", ErrSchemaInvariant, len(calls), len(results))
	}
	seen := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			return Example{}, fmt.Errorf("%w: call %d has empty id", ErrSchemaInvariant, i)
		}
		if _, dup := seen[call.ID]; dup {
			return Example{}, fmt.Errorf("%w: duplicate call id %q", ErrSchemaInvariant, call.ID)
		}
		seen[call.ID] = struct{}{}
		if results[i].CallID != call.ID {
			return Example{}, fmt.Errorf("%w: result %d correlates %q, expected %q", ErrSchemaInvariant, i, results[i].CallID, call.ID)
		}
	}
	return Example{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		ToolCalls:        calls,
		ToolResults:      results,
		CreatedAt:        at.UTC(),
	}, nil
}
