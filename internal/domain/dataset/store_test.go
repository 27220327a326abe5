package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func exampleNamed(t *testing.T, user string) Example {
	t.Helper()
	ex, err := Assemble(user, "done", nil, nil, time.Now())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return ex
}

func TestStore_AppendReadOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.Append(exampleNamed(t, fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	examples, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(examples) != 5 {
		t.Fatalf("got %d examples, want 5", len(examples))
	}
	for i, ex := range examples {
		if want := fmt.Sprintf("msg-%d", i); ex.UserMessage != want {
			t.Fatalf("examples[%d].UserMessage = %q, want %q", i, ex.UserMessage, want)
		}
	}
}

func TestStore_ReopenAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := s.Append(exampleNamed(t, "first")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if err := s.Append(exampleNamed(t, "second")); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	examples, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(examples) != 2 || examples[0].UserMessage != "first" || examples[1].UserMessage != "second" {
		t.Fatalf("examples = %+v", examples)
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Append(exampleNamed(t, fmt.Sprintf("c-%d", i))); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	examples, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	// Every line must be intact; interleaving order is unspecified.
	if len(examples) != n {
		t.Fatalf("got %d examples, want %d", len(examples), n)
	}
}

func TestReadAll_ToleratesTrailingPartialLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := s.Append(exampleNamed(t, "complete")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate an interrupted append: half a record, no terminator.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString(`{"messages":[{"role":"user","con`); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	examples, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll with partial tail: %v", err)
	}
	if len(examples) != 1 || examples[0].UserMessage != "complete" {
		t.Fatalf("examples = %+v", examples)
	}
}

func TestReadAll_RejectsCorruptionMidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	content := `{"messages":[{"role":"user","content":"ok"},{"role":"assistant","content":"a"}]}
not json at all
{"messages":[{"role":"user","content":"ok2"},{"role":"assistant","content":"a"}]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := ReadAll(path); err == nil {
		t.Fatalf("expected error for mid-file corruption")
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	t.Parallel()

	examples, err := ReadAll(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("ReadAll on missing file: %v", err)
	}
	if examples != nil {
		t.Fatalf("expected no examples, got %v", examples)
	}
}
