package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

func echoSpec(name string) tool.Spec {
	return tool.Spec{
		Name:        name,
		Description: "test tool",
		Parameters: tool.Schema{
			Type: "object",
			Properties: []tool.Property{
				{Name: "value", Schema: tool.Schema{Type: "string"}},
			},
			Required: []string{"value"},
		},
	}
}

func newTestDispatcher(t *testing.T, policy Policy, rec Recorder, register func(r *tool.Registry)) *Dispatcher {
	t.Helper()
	reg := tool.NewRegistry()
	register(reg)
	exec := tool.NewExecutor(200*time.Millisecond, zap.NewNop())
	return New(reg, exec, policy, zap.NewNop(), rec)
}

type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (m *memRecorder) Record(_ context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func TestDispatch_BudgetBoundary(t *testing.T) {
	t.Parallel()

	policy := Policy{MaxCalls: 3, MaxRetries: 1, BaseDelay: time.Millisecond}
	d := newTestDispatcher(t, policy, nil, func(r *tool.Registry) {
		_ = r.Register(echoSpec("echo"), tool.HandlerFunc(
			func(_ context.Context, args map[string]any) (json.RawMessage, error) {
				return json.Marshal(args)
			}))
	})

	calls := make([]tool.Call, 0, 4)
	for i := 0; i < 3; i++ {
		calls = append(calls, tool.Call{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      "echo",
			Arguments: map[string]any{"value": "x"},
		})
	}

	// Exactly at the budget: the turn runs.
	results, err := d.Dispatch(context.Background(), "turn-1", calls)
	if err != nil {
		t.Fatalf("Dispatch at budget: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// One over: the whole turn aborts before any call runs.
	calls = append(calls, tool.Call{ID: "call_3", Name: "echo", Arguments: map[string]any{"value": "x"}})
	results, err = d.Dispatch(context.Background(), "turn-2", calls)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if results != nil {
		t.Fatalf("aborted turn must return nil results, got %v", results)
	}
}

func TestDispatch_RetryThenSucceed(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	rec := &memRecorder{}
	policy := Policy{MaxCalls: 5, MaxRetries: 3, BaseDelay: time.Millisecond}
	d := newTestDispatcher(t, policy, rec, func(r *tool.Registry) {
		_ = r.Register(echoSpec("flaky"), tool.HandlerFunc(
			func(_ context.Context, _ map[string]any) (json.RawMessage, error) {
				if attempts.Add(1) <= 2 {
					return nil, fmt.Errorf("%w: transient", tool.ErrExecution)
				}
				return json.RawMessage(`{"ok":true}`), nil
			}))
	})

	results, err := d.Dispatch(context.Background(), "turn-1", []tool.Call{
		{ID: "call_0", Name: "flaky", Arguments: map[string]any{"value": "x"}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	res := results[0]
	if !res.OK() {
		t.Fatalf("expected ok result after retries, got %+v", res)
	}
	if res.ErrorMessage != "" {
		t.Fatalf("recovered call must carry no residual error, got %q", res.ErrorMessage)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("handler ran %d times, want 3", got)
	}
	if len(rec.events) != 1 || rec.events[0].Attempts != 3 {
		t.Fatalf("audit event = %+v", rec.events)
	}
}

func TestDispatch_RetriesExhausted(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	policy := Policy{MaxCalls: 5, MaxRetries: 2, BaseDelay: time.Millisecond}
	d := newTestDispatcher(t, policy, nil, func(r *tool.Registry) {
		_ = r.Register(echoSpec("broken"), tool.HandlerFunc(
			func(_ context.Context, _ map[string]any) (json.RawMessage, error) {
				attempts.Add(1)
				return nil, fmt.Errorf("%w: still down", tool.ErrExecution)
			}))
	})

	results, err := d.Dispatch(context.Background(), "turn-1", []tool.Call{
		{ID: "call_0", Name: "broken", Arguments: map[string]any{"value": "x"}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Status != tool.StatusError {
		t.Fatalf("status = %q", results[0].Status)
	}
	if !strings.Contains(results[0].ErrorMessage, "still down") {
		t.Fatalf("error message should come from the last attempt: %q", results[0].ErrorMessage)
	}
	// 1 initial + 2 retries.
	if got := attempts.Load(); got != 3 {
		t.Fatalf("handler ran %d times, want 3", got)
	}
}

func TestDispatch_ValidationFailure_NoRetry(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	policy := Policy{MaxCalls: 5, MaxRetries: 3, BaseDelay: time.Millisecond}
	d := newTestDispatcher(t, policy, nil, func(r *tool.Registry) {
		_ = r.Register(echoSpec("echo"), tool.HandlerFunc(
			func(_ context.Context, _ map[string]any) (json.RawMessage, error) {
				attempts.Add(1)
				return json.RawMessage(`{}`), nil
			}))
	})

	results, err := d.Dispatch(context.Background(), "turn-1", []tool.Call{
		{ID: "call_0", Name: "echo", Arguments: map[string]any{}}, // missing required "value"
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Status != tool.StatusError {
		t.Fatalf("status = %q", results[0].Status)
	}
	if !strings.Contains(results[0].ErrorMessage, "value") {
		t.Fatalf("error should name the missing field: %q", results[0].ErrorMessage)
	}
	if attempts.Load() != 0 {
		t.Fatalf("handler must not run for an invalid call")
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, DefaultPolicy(), nil, func(_ *tool.Registry) {})
	results, err := d.Dispatch(context.Background(), "turn-1", []tool.Call{
		{ID: "call_0", Name: "nope", Arguments: nil},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Status != tool.StatusError {
		t.Fatalf("status = %q", results[0].Status)
	}
	if !strings.Contains(results[0].ErrorMessage, "not registered") {
		t.Fatalf("error message = %q", results[0].ErrorMessage)
	}
}

func TestDispatch_TimeoutStatus(t *testing.T) {
	t.Parallel()

	policy := Policy{MaxCalls: 5, MaxRetries: 0, BaseDelay: time.Millisecond}
	d := newTestDispatcher(t, policy, nil, func(r *tool.Registry) {
		_ = r.Register(echoSpec("slow"), tool.HandlerFunc(
			func(ctx context.Context, _ map[string]any) (json.RawMessage, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}))
	})

	results, err := d.Dispatch(context.Background(), "turn-1", []tool.Call{
		{ID: "call_0", Name: "slow", Arguments: map[string]any{"value": "x"}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Status != tool.StatusTimeout {
		t.Fatalf("status = %q, want timeout", results[0].Status)
	}
}

func TestDispatch_ResultsIndexAligned(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, DefaultPolicy(), nil, func(r *tool.Registry) {
		_ = r.Register(echoSpec("echo"), tool.HandlerFunc(
			func(_ context.Context, args map[string]any) (json.RawMessage, error) {
				return json.Marshal(args)
			}))
	})

	calls := []tool.Call{
		{ID: "call_a", Name: "echo", Arguments: map[string]any{"value": "1"}},
		{ID: "call_b", Name: "missing", Arguments: nil},
		{ID: "call_c", Name: "echo", Arguments: map[string]any{"value": "3"}},
	}
	results, err := d.Dispatch(context.Background(), "turn-1", calls)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for i := range calls {
		if results[i].CallID != calls[i].ID {
			t.Fatalf("results[%d].CallID = %q, want %q", i, results[i].CallID, calls[i].ID)
		}
	}
	if !results[0].OK() || results[1].OK() || !results[2].OK() {
		t.Fatalf("unexpected statuses: %+v", results)
	}
}

func TestDispatch_CancellationDuringBackoff_AbortsTurn(t *testing.T) {
	t.Parallel()

	policy := Policy{MaxCalls: 5, MaxRetries: 3, BaseDelay: 10 * time.Second}
	d := newTestDispatcher(t, policy, nil, func(r *tool.Registry) {
		_ = r.Register(echoSpec("flaky"), tool.HandlerFunc(
			func(_ context.Context, _ map[string]any) (json.RawMessage, error) {
				return nil, fmt.Errorf("%w: transient", tool.ErrExecution)
			}))
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results, err := d.Dispatch(ctx, "turn-1", []tool.Call{
		{ID: "call_0", Name: "flaky", Arguments: map[string]any{"value": "x"}},
		{ID: "call_1", Name: "flaky", Arguments: map[string]any{"value": "y"}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if results != nil {
		t.Fatalf("cancelled turn must return nil results")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation did not interrupt backoff (took %s)", elapsed)
	}
}
