package tool

import (
	"fmt"
	"time"
)

// CatalogDeps supplies the collaborators behind the builtin catalog.
// Zero-value fields fall back to the deterministic builtin implementations.
type CatalogDeps struct {
	Weather   WeatherService
	Search    SearchService
	Clock     Clock
	FilesRoot string
}

// NewBuiltinRegistry builds the fixed catalog of the six builtin tools.
// This is the only place specs are registered; the returned registry is
// read-only for the rest of the process lifetime.
func NewBuiltinRegistry(deps CatalogDeps) (*Registry, error) {
	if deps.Weather == nil {
		deps.Weather = NewStaticWeather()
	}
	if deps.Search == nil {
		deps.Search = NewMockSearch()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.FilesRoot == "" {
		deps.FilesRoot = "."
	}

	fileOps, err := NewFileOpsHandler(deps.FilesRoot)
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	entries := []struct {
		spec    Spec
		handler Handler
	}{
		{weatherSpec(), NewWeatherHandler(deps.Weather)},
		{calculateSpec(), NewCalculateHandler()},
		{executeCodeSpec(), NewSandboxHandler()},
		{searchSpec(), NewSearchHandler(deps.Search)},
		{datetimeSpec(), NewDatetimeHandler(deps.Clock)},
		{fileOpsSpec(), fileOps},
	}
	for _, e := range entries {
		if err := r.Register(e.spec, e.handler); err != nil {
			return nil, fmt.Errorf("register builtin %q: %w", e.spec.Name, err)
		}
	}
	return r, nil
}

func weatherSpec() Spec {
	return Spec{
		Name:        "get_weather",
		Description: "Get the current weather in a given location",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "location", Schema: Schema{Type: "string", Description: "The city and state, e.g. San Francisco, CA"}},
				{Name: "unit", Schema: Schema{Type: "string", Enum: []string{"celsius", "fahrenheit"}, Description: "The unit of temperature"}},
			},
			Required: []string{"location"},
		},
	}
}

func calculateSpec() Spec {
	return Spec{
		Name:        "calculate",
		Description: "Perform mathematical calculations",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "expression", Schema: Schema{Type: "string", Description: "The mathematical expression to evaluate"}},
			},
			Required: []string{"expression"},
		},
	}
}

func executeCodeSpec() Spec {
	return Spec{
		Name:        "execute_code",
		Description: "Execute a Go snippet in a sandboxed interpreter and return its output",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "code", Schema: Schema{Type: "string", Description: "The code to execute"}},
			},
			Required: []string{"code"},
		},
	}
}

func searchSpec() Spec {
	return Spec{
		Name:        "search_web",
		Description: "Search the web for information",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "query", Schema: Schema{Type: "string", Description: "The search query"}},
				{Name: "num_results", Schema: Schema{Type: "integer", Description: "Number of results to return (max 5)"}},
			},
			Required: []string{"query"},
		},
	}
}

func datetimeSpec() Spec {
	return Spec{
		Name:        "get_datetime",
		Description: "Get current date and time",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "timezone", Schema: Schema{Type: "string", Description: "Timezone (e.g., 'America/New_York')"}},
				{Name: "format", Schema: Schema{Type: "string", Description: "Date format string (e.g., '%Y-%m-%d %H:%M:%S')"}},
			},
		},
	}
}

func fileOpsSpec() Spec {
	return Spec{
		Name:        "file_operations",
		Description: "Perform file operations (read, write, list) inside the sandbox root",
		Parameters: Schema{
			Type: "object",
			Properties: []Property{
				{Name: "operation", Schema: Schema{Type: "string", Enum: []string{"read", "write", "list"}, Description: "The operation to perform"}},
				{Name: "path", Schema: Schema{Type: "string", Description: "The file or directory path, relative to the sandbox root"}},
				{Name: "content", Schema: Schema{Type: "string", Description: "Content to write (required for write operation)"}},
			},
			Required: []string{"operation", "path"},
		},
	}
}
