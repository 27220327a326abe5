package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jsalazar/toolforge/internal/domain/dataset"
	"github.com/jsalazar/toolforge/internal/domain/dispatch"
)

// TurnRunner executes one assistant turn end to end. Satisfied by
// turn.Runner.
type TurnRunner interface {
	Run(ctx context.Context, userMsg string) (dataset.Example, error)
}

// TurnHandler drives live turns through the model and the tool pipeline.
type TurnHandler struct {
	runner TurnRunner
}

func NewTurnHandler(runner TurnRunner) *TurnHandler {
	return &TurnHandler{runner: runner}
}

type turnRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	UserMessage      string          `json:"user_message"`
	AssistantMessage string          `json:"assistant_message"`
	ToolCalls        json.RawMessage `json:"tool_calls"`
	ToolResults      json.RawMessage `json:"tool_results"`
}

// Create handles POST /api/v1/turns.
//
// Response codes:
//   - 201 Created: turn completed and persisted
//   - 400 Bad Request: invalid JSON or empty message
//   - 429 Too Many Requests: the model exceeded the per-turn call budget
//   - 502 Bad Gateway: model provider failure
func (h *TurnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ex, err := h.runner.Run(r.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrBudgetExceeded):
			writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to send.
			writeError(w, http.StatusInternalServerError, "turn cancelled")
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	calls, _ := json.Marshal(ex.ToolCalls)
	results, _ := json.Marshal(ex.ToolResults)
	writeJSON(w, http.StatusCreated, turnResponse{
		UserMessage:      ex.UserMessage,
		AssistantMessage: ex.AssistantMessage,
		ToolCalls:        calls,
		ToolResults:      results,
	})
}
