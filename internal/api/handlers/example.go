package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jsalazar/toolforge/internal/domain/dataset"
)

// ExampleHandler serves the assembled training corpus.
type ExampleHandler struct {
	datasetPath string
}

func NewExampleHandler(datasetPath string) *ExampleHandler {
	return &ExampleHandler{datasetPath: datasetPath}
}

// List handles GET /api/v1/examples?limit=N — the newest examples, in
// chat-completions record form.
func (h *ExampleHandler) List(w http.ResponseWriter, r *http.Request) {
	examples, err := dataset.ReadAll(h.datasetPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read dataset")
		return
	}

	total := len(examples)
	limit := parseLimit(r)
	if limit < total {
		examples = examples[total-limit:]
	}

	records := make([]dataset.Record, 0, len(examples))
	for _, ex := range examples {
		line, err := dataset.MarshalRecord(ex)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode example")
			return
		}
		var rec dataset.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode example")
			return
		}
		records = append(records, rec)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": records,
		"meta": map[string]int{"total": total, "returned": len(records)},
	})
}
