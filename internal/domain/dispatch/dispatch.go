// Package dispatch sequences the tool calls requested within a single
// assistant turn: budget enforcement, argument validation, execution with
// retry, and index-aligned result collection.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// ErrBudgetExceeded is returned when a turn requests more calls than the
// configured per-turn budget. The whole turn is rejected; no call runs.
var ErrBudgetExceeded = errors.New("tool call budget exceeded")

// State tracks a single call through the dispatch lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateRetrying   State = "retrying"
	StateResolved   State = "resolved"
	StateAborted    State = "aborted"
)

// Policy bounds a turn's dispatch work.
type Policy struct {
	// MaxCalls is the per-turn invocation budget.
	MaxCalls int
	// MaxRetries is the number of repeat attempts after a retryable
	// failure, so a call runs at most MaxRetries+1 times.
	MaxRetries int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

// DefaultPolicy matches the catalog defaults: ten calls per turn, three
// retries, 100ms backoff seed.
func DefaultPolicy() Policy {
	return Policy{MaxCalls: 10, MaxRetries: 3, BaseDelay: 100 * time.Millisecond}
}

// Event describes one settled call for the audit trail.
type Event struct {
	TurnID   string
	CallID   string
	Tool     string
	Status   tool.Status
	Attempts int
	Duration time.Duration
	Error    string
}

// Recorder receives one Event per settled call. Implementations must not
// block dispatch; failures to record are the recorder's problem.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Dispatcher runs the calls of one turn against a registry.
type Dispatcher struct {
	registry *tool.Registry
	exec     *tool.Executor
	policy   Policy
	logger   *zap.Logger
	recorder Recorder
}

// New returns a Dispatcher. recorder may be nil.
func New(registry *tool.Registry, exec *tool.Executor, policy Policy, logger *zap.Logger, recorder Recorder) *Dispatcher {
	if policy.MaxCalls <= 0 {
		policy.MaxCalls = DefaultPolicy().MaxCalls
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultPolicy().BaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		exec:     exec,
		policy:   policy,
		logger:   logger,
		recorder: recorder,
	}
}

// Dispatch runs calls in order and returns one result per call, index-aligned
// with the input. A budget violation or context cancellation aborts the whole
// turn with a nil result slice; individual call failures do not.
func (d *Dispatcher) Dispatch(ctx context.Context, turnID string, calls []tool.Call) ([]tool.Result, error) {
	if len(calls) > d.policy.MaxCalls {
		d.logger.Warn("turn rejected: call budget exceeded",
			zap.String("turn_id", turnID),
			zap.Int("requested", len(calls)),
			zap.Int("budget", d.policy.MaxCalls))
		return nil, fmt.Errorf("%w: %d calls requested, budget is %d", ErrBudgetExceeded, len(calls), d.policy.MaxCalls)
	}

	results := make([]tool.Result, len(calls))
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, attempts, dur, err := d.dispatchOne(ctx, call)
		if err != nil {
			// Only turn-level cancellation surfaces here.
			return nil, err
		}
		results[i] = res
		if d.recorder != nil {
			d.recorder.Record(ctx, Event{
				TurnID:   turnID,
				CallID:   call.ID,
				Tool:     call.Name,
				Status:   res.Status,
				Attempts: attempts,
				Duration: dur,
				Error:    res.ErrorMessage,
			})
		}
	}
	return results, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, call tool.Call) (tool.Result, int, time.Duration, error) {
	start := time.Now()

	spec, handler, err := d.registry.Resolve(call.Name)
	if err != nil {
		return d.settle(call, err), 0, time.Since(start), nil
	}

	if err := tool.Validate(call, spec); err != nil {
		d.logger.Debug("call rejected by validator",
			zap.String("call_id", call.ID),
			zap.String("tool", call.Name),
			zap.Error(err))
		return d.settle(call, err), 0, time.Since(start), nil
	}

	attempts := 0
	for {
		attempts++
		payload, execErr := d.exec.Execute(ctx, call.Name, handler, call.Arguments)
		if execErr == nil {
			return tool.Result{CallID: call.ID, Status: tool.StatusOK, Payload: payload}, attempts, time.Since(start), nil
		}
		if ctx.Err() != nil {
			return tool.Result{}, attempts, time.Since(start), ctx.Err()
		}
		if !tool.Retryable(execErr) || attempts > d.policy.MaxRetries {
			return d.settle(call, execErr), attempts, time.Since(start), nil
		}

		delay := d.policy.BaseDelay << (attempts - 1)
		d.logger.Info("retrying tool call",
			zap.String("call_id", call.ID),
			zap.String("tool", call.Name),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", delay),
			zap.Error(execErr))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return tool.Result{}, attempts, time.Since(start), ctx.Err()
		}
	}
}

// settle converts a terminal failure into an error-shaped result.
func (d *Dispatcher) settle(call tool.Call, err error) tool.Result {
	status := tool.StatusError
	if errors.Is(err, tool.ErrTimeout) {
		status = tool.StatusTimeout
	}
	return tool.Result{CallID: call.ID, Status: status, ErrorMessage: err.Error()}
}
