package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single invocation when no budget is configured.
const DefaultTimeout = 5 * time.Second

// Executor runs a single validated invocation under a wall-clock budget.
// The handler runs in its own goroutine; if the budget elapses first, the
// caller receives a timeout and the handler's eventual result is abandoned,
// never delivered late. The timeout boundary is exclusive: a handler that
// finishes only once the deadline has passed is treated as having exceeded it.
type Executor struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor returns an Executor with the given per-call budget.
// A zero timeout falls back to DefaultTimeout.
func NewExecutor(timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{timeout: timeout, logger: logger}
}

// Timeout returns the configured per-call budget.
func (e *Executor) Timeout() time.Duration { return e.timeout }

type outcome struct {
	payload json.RawMessage
	err     error
}

// Execute runs h with args under the configured budget.
// Returns ErrTimeout (wrapped) when the budget elapses, the caller's own
// context error when the surrounding turn was cancelled, or the handler's
// payload/error otherwise.
func (e *Executor) Execute(ctx context.Context, name string, h Handler, args map[string]any) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan outcome, 1)
	go func() {
		payload, err := h.Execute(callCtx, args)
		ch <- outcome{payload: payload, err: err}
	}()

	select {
	case <-callCtx.Done():
		return nil, e.deadlineError(ctx, callCtx, name, start)
	case out := <-ch:
		if callCtx.Err() != nil {
			// The handler raced the deadline and lost: exclusive boundary.
			return nil, e.deadlineError(ctx, callCtx, name, start)
		}
		if out.err != nil {
			e.logger.Debug("tool handler failed",
				zap.String("tool", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(out.err))
		}
		return out.payload, out.err
	}
}

func (e *Executor) deadlineError(parent, callCtx context.Context, name string, start time.Time) error {
	if parent.Err() != nil {
		// The turn itself was cancelled; report that, not a tool timeout.
		return parent.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		e.logger.Warn("tool invocation timed out",
			zap.String("tool", name),
			zap.Duration("budget", e.timeout),
			zap.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	return callCtx.Err()
}
