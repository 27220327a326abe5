package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// SearchResult is one hit returned by a search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchService is the collaborator boundary for web search.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// maxSearchResults caps how many hits the mock backend fabricates.
const maxSearchResults = 5

// MockSearch fabricates deterministic results for a query. Stands in for a
// real search API.
type MockSearch struct{}

// NewMockSearch returns the deterministic search backend.
func NewMockSearch() *MockSearch { return &MockSearch{} }

func (s *MockSearch) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	out := make([]SearchResult, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, SearchResult{
			Title:   fmt.Sprintf("Result %d for: %s", i+1, query),
			URL:     fmt.Sprintf("https://example.com/result%d", i+1),
			Snippet: fmt.Sprintf("This is a sample snippet for search result %d related to %s", i+1, query),
		})
	}
	return out, nil
}

// SearchHandler adapts a SearchService to the tool contract.
type SearchHandler struct {
	svc SearchService
}

// NewSearchHandler wraps svc as the search_web handler.
func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) Execute(ctx context.Context, args map[string]any) (json.RawMessage, error) {
	query, _ := args["query"].(string)
	limit := intArg(args, "num_results", maxSearchResults)

	results, err := h.svc.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrExecution, err)
	}
	return json.Marshal(map[string]any{
		"query":         query,
		"results":       results,
		"total_results": len(results),
	})
}

// intArg reads an integer argument that may arrive as a Go int or, after
// JSON decoding, as a float64.
func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
