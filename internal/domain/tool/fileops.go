package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileOpsHandler performs read, write, and list operations confined to a
// single root directory. Every argument path is normalized (traversal
// sequences included) and resolved against the root; anything that lands
// outside fails with ErrPathEscape before any I/O happens.
type FileOpsHandler struct {
	root string
}

// NewFileOpsHandler confines file operations to root. The root itself is
// cleaned to an absolute form once, at construction.
func NewFileOpsHandler(root string) (*FileOpsHandler, error) {
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root %q: %w", root, err)
	}
	return &FileOpsHandler{root: abs}, nil
}

// Root returns the absolute sandbox root.
func (h *FileOpsHandler) Root() string { return h.root }

func (h *FileOpsHandler) Execute(_ context.Context, args map[string]any) (json.RawMessage, error) {
	operation, _ := args["operation"].(string)
	path, _ := args["path"].(string)

	resolved, err := h.resolve(path)
	if err != nil {
		return nil, err
	}

	switch operation {
	case "read":
		return h.read(resolved, path)
	case "write":
		content, ok := args["content"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: content is required for write operation", ErrExecution)
		}
		return h.write(resolved, path, content)
	case "list":
		return h.list(resolved, path)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrExecution, operation)
	}
}

// resolve normalizes path against the root and rejects anything escaping it.
func (h *FileOpsHandler) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrExecution)
	}
	joined := path
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(h.root, joined)
	}
	joined = filepath.Clean(joined)

	rel, err := filepath.Rel(h.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside %q", ErrPathEscape, path, h.root)
	}
	return joined, nil
}

func (h *FileOpsHandler) read(resolved, original string) (json.RawMessage, error) {
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrExecution, original, err)
	}
	return json.Marshal(map[string]any{
		"path":    original,
		"content": string(data),
		"size":    len(data),
	})
}

func (h *FileOpsHandler) write(resolved, original, content string) (json.RawMessage, error) {
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write %q: %v", ErrExecution, original, err)
	}
	return json.Marshal(map[string]any{
		"path":          original,
		"bytes_written": len(content),
	})
}

func (h *FileOpsHandler) list(resolved, original string) (json.RawMessage, error) {
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %q: %v", ErrExecution, original, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrExecution, original)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %v", ErrExecution, original, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return json.Marshal(map[string]any{
		"path":  original,
		"files": names,
		"count": len(names),
	})
}
