package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jsalazar/toolforge/internal/domain/dispatch"
	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// Dispatcher runs tool calls. Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, turnID string, calls []tool.Call) ([]tool.Result, error)
}

// ToolHandler exposes the tool catalog and direct execution.
type ToolHandler struct {
	registry *tool.Registry
	disp     Dispatcher
}

func NewToolHandler(registry *tool.Registry, disp Dispatcher) *ToolHandler {
	return &ToolHandler{registry: registry, disp: disp}
}

// List handles GET /api/v1/tools — the catalog in function-calling wire form.
func (h *ToolHandler) List(w http.ResponseWriter, _ *http.Request) {
	defs := h.registry.Definitions()
	writeJSON(w, http.StatusOK, map[string]any{
		"data": defs,
		"meta": map[string]int{"total": len(defs)},
	})
}

type executeRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Execute handles POST /api/v1/tools/execute — one call through the full
// dispatch pipeline (validation, retry, audit).
//
// Response codes:
//   - 200 OK: call settled (the result's status may still be error/timeout)
//   - 400 Bad Request: invalid JSON or missing name
//   - 500 Internal Server Error: turn-level failure
func (h *ToolHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	call := tool.Call{
		ID:        "call_" + uuid.NewString(),
		Name:      req.Name,
		Arguments: req.Arguments,
	}
	results, err := h.disp.Dispatch(r.Context(), "api:"+uuid.NewString(), []tool.Call{call})
	if err != nil {
		if errors.Is(err, dispatch.ErrBudgetExceeded) {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, results[0])
}
