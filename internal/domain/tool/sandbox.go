package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// MaxCaptureBytes is the ceiling on captured stdout/stderr per invocation.
// Output above it is truncated, not failed, and flagged in the payload.
const MaxCaptureBytes = 64 << 10

// sandboxImports is the allowlist for code evaluated in the sandbox.
// Filesystem, network, process, and unsafe packages are deliberately absent.
// Enforcement happens at symbol level: only these packages are loaded into
// the interpreter, so anything else fails to resolve no matter how the
// import clause is spelled.
var sandboxImports = map[string]bool{
	"bytes":           true,
	"encoding/base64": true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
}

// sandboxSymbols is stdlib.Symbols restricted to the allowlist. yaegi keys
// its symbol map as "<import path>/<package name>".
var sandboxSymbols = func() interp.Exports {
	filtered := make(interp.Exports)
	for key, symbols := range stdlib.Symbols {
		idx := strings.LastIndex(key, "/")
		if idx < 0 {
			continue
		}
		if sandboxImports[key[:idx]] {
			filtered[key] = symbols
		}
	}
	return filtered
}()

// SandboxHandler evaluates arbitrary Go snippets in a yaegi interpreter.
// Every invocation gets a fresh interpreter, so nothing — declared
// variables, modified package state — leaks between invocations or into the
// orchestrating process. Stdout and stderr are captured separately, each
// capped at MaxCaptureBytes. The interpreter honors context cancellation,
// so the dispatcher's per-call budget terminates runaway code.
type SandboxHandler struct{}

// NewSandboxHandler returns the execute_code handler.
func NewSandboxHandler() *SandboxHandler { return &SandboxHandler{} }

func (h *SandboxHandler) Execute(ctx context.Context, args map[string]any) (json.RawMessage, error) {
	code, _ := args["code"].(string)
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty code", ErrExecution)
	}

	stdout := newCapWriter(MaxCaptureBytes)
	stderr := newCapWriter(MaxCaptureBytes)
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stderr})
	if err := i.Use(sandboxSymbols); err != nil {
		return nil, fmt.Errorf("%w: load sandbox symbols: %v", ErrExecution, err)
	}

	_, err := i.EvalWithContext(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			// Let the executor's deadline classification take over.
			return nil, ctx.Err()
		}
		// A package outside the allowlist has no loaded symbols, so the
		// interpreter cannot find it.
		if strings.Contains(err.Error(), "unable to find source related to") {
			return nil, fmt.Errorf("%w: import not permitted in sandbox: %v", ErrExecution, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	return json.Marshal(map[string]any{
		"output":    stdout.String(),
		"stderr":    stderr.String(),
		"truncated": stdout.Truncated() || stderr.Truncated(),
	})
}

// capWriter buffers writes up to a fixed ceiling and records truncation.
type capWriter struct {
	mu        sync.Mutex
	buf       strings.Builder
	limit     int
	truncated bool
}

func newCapWriter(limit int) *capWriter {
	return &capWriter{limit: limit}
}

func (w *capWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (w *capWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *capWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
