// Package turn drives one complete assistant turn: ask the model, execute
// the tool calls it requests, feed the results back for a final answer, and
// persist the assembled example.
package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jsalazar/toolforge/internal/domain/dataset"
	"github.com/jsalazar/toolforge/internal/domain/tool"
	"github.com/jsalazar/toolforge/internal/infra/llm"
)

// Dispatcher runs a turn's calls. Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, turnID string, calls []tool.Call) ([]tool.Result, error)
}

// Appender persists assembled examples. Satisfied by dataset.Store.
type Appender interface {
	Append(ex dataset.Example) error
}

// Runner executes turns end to end.
type Runner struct {
	provider llm.Provider
	disp     Dispatcher
	store    Appender
	registry *tool.Registry
	clock    func() time.Time
	logger   *zap.Logger
}

// NewRunner wires a turn runner. clock may be nil (defaults to time.Now);
// store may be nil to run turns without persisting them.
func NewRunner(provider llm.Provider, disp Dispatcher, store Appender, registry *tool.Registry, clock func() time.Time, logger *zap.Logger) *Runner {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		provider: provider,
		disp:     disp,
		store:    store,
		registry: registry,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes one turn for userMsg. A cancelled or aborted turn persists
// nothing; partial work is discarded.
func (r *Runner) Run(ctx context.Context, userMsg string) (dataset.Example, error) {
	turnID := uuid.NewString()
	messages := []llm.Message{{Role: "user", Content: userMsg}}

	resp, err := r.provider.ChatCompletion(ctx, llm.ChatRequest{
		Messages: messages,
		Tools:    r.registry.Definitions(),
	})
	if err != nil {
		return dataset.Example{}, fmt.Errorf("turn %s: chat completion: %w", turnID, err)
	}

	if len(resp.ToolCalls) == 0 {
		return r.finish(turnID, userMsg, resp.Content, nil, nil)
	}

	calls, err := decodeCalls(resp.ToolCalls)
	if err != nil {
		return dataset.Example{}, fmt.Errorf("turn %s: %w", turnID, err)
	}

	results, err := r.disp.Dispatch(ctx, turnID, calls)
	if err != nil {
		r.logger.Warn("turn aborted",
			zap.String("turn_id", turnID),
			zap.Error(err))
		return dataset.Example{}, fmt.Errorf("turn %s: %w", turnID, err)
	}

	final, err := r.finalAnswer(ctx, messages, resp.ToolCalls, results)
	if err != nil {
		return dataset.Example{}, fmt.Errorf("turn %s: %w", turnID, err)
	}
	if err := ctx.Err(); err != nil {
		return dataset.Example{}, err
	}

	return r.finish(turnID, userMsg, final, calls, results)
}

// finalAnswer replays the tool exchange to the model and asks for the
// closing assistant message.
func (r *Runner) finalAnswer(ctx context.Context, messages []llm.Message, requested []llm.ToolCallRequest, results []tool.Result) (string, error) {
	messages = append(messages, llm.Message{Role: "assistant", ToolCalls: requested})
	for _, res := range results {
		content, err := json.Marshal(res)
		if err != nil {
			return "", fmt.Errorf("encode result %s: %w", res.CallID, err)
		}
		messages = append(messages, llm.Message{
			Role:       "tool",
			ToolCallID: res.CallID,
			Content:    string(content),
		})
	}

	resp, err := r.provider.ChatCompletion(ctx, llm.ChatRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("final completion: %w", err)
	}
	return resp.Content, nil
}

func (r *Runner) finish(turnID, userMsg, assistantMsg string, calls []tool.Call, results []tool.Result) (dataset.Example, error) {
	ex, err := dataset.Assemble(userMsg, assistantMsg, calls, results, r.clock())
	if err != nil {
		return dataset.Example{}, fmt.Errorf("turn %s: %w", turnID, err)
	}
	if r.store != nil {
		if err := r.store.Append(ex); err != nil {
			return dataset.Example{}, fmt.Errorf("turn %s: %w", turnID, err)
		}
	}
	r.logger.Info("turn completed",
		zap.String("turn_id", turnID),
		zap.Int("tool_calls", len(calls)))
	return ex, nil
}

// decodeCalls converts wire-form tool calls into dispatchable calls,
// parsing each JSON-encoded argument string.
func decodeCalls(requested []llm.ToolCallRequest) ([]tool.Call, error) {
	calls := make([]tool.Call, len(requested))
	for i, rc := range requested {
		var args map[string]any
		if rc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(rc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("malformed arguments for call %s: %w", rc.ID, err)
			}
		}
		id := rc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls[i] = tool.Call{ID: id, Name: rc.Function.Name, Arguments: args}
	}
	return calls, nil
}
