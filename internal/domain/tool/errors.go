package tool

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTool is returned when a spec name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool is returned when resolving a name with no registered spec.
	ErrUnknownTool = errors.New("tool not registered")

	// ErrTimeout marks an invocation that exceeded its wall-clock budget.
	// Retryable up to the dispatcher's policy limit.
	ErrTimeout = errors.New("tool execution timed out")

	// ErrExecution marks a handler-internal failure.
	// Retryable up to the dispatcher's policy limit.
	ErrExecution = errors.New("tool execution failed")

	// ErrPathEscape is returned by the file-operations handler when a path
	// resolves outside the configured root. Non-retryable.
	ErrPathEscape = errors.New("path escapes sandbox root")
)

// ValidationError reports the first schema violation found in a call's
// arguments. Non-retryable: invalid arguments are not transient.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// Retryable reports whether err may succeed on a repeated attempt.
// Validation failures, unknown tools, and sandbox-root violations are
// deterministic; timeouts and handler-internal failures are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return false
	}
	if errors.Is(err, ErrUnknownTool) || errors.Is(err, ErrPathEscape) || errors.Is(err, ErrDuplicateTool) {
		return false
	}
	// Anything else is treated as transient: timeouts, handler-internal
	// failures, and unclassified errors from collaborators.
	return true
}
