package handlers

import (
	"net/http"

	"github.com/jsalazar/toolforge/internal/domain/audit"
)

// ActivityHandler serves the invocation audit trail.
type ActivityHandler struct {
	audit *audit.Service
}

func NewActivityHandler(auditSvc *audit.Service) *ActivityHandler {
	return &ActivityHandler{audit: auditSvc}
}

// List handles GET /api/v1/invocations.
// With ?turn_id=X it returns that turn's events in order; otherwise the
// newest events up to ?limit=N.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		events []audit.InvocationEvent
		err    error
	)
	if turnID := r.URL.Query().Get("turn_id"); turnID != "" {
		events, err = h.audit.ListByTurn(r.Context(), turnID)
	} else {
		events, err = h.audit.Recent(r.Context(), parseLimit(r))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list invocations")
		return
	}

	if events == nil {
		events = []audit.InvocationEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": events,
		"meta": map[string]int{"total": len(events)},
	})
}
