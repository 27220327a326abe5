package dataset

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// Store appends training examples to a JSONL file. Appends are serialized
// and flushed to disk one line at a time, so a crash loses at most the line
// being written and never corrupts earlier records.
type Store struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenStore opens (or creates) the JSONL file at path for appending.
func OpenStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	return &Store{f: f, path: path}, nil
}

// Path returns the file the store appends to.
func (s *Store) Path() string { return s.path }

// Append writes one example as a single line and syncs the file before
// returning. Safe for concurrent use.
func (s *Store) Append(ex Example) error {
	line, err := MarshalRecord(ex)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}
	return nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// ReadAll loads every complete example from a JSONL dataset in file order.
// A trailing partial line (an interrupted append) is skipped; a malformed
// line anywhere else is an error.
func ReadAll(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var examples []Example
	lines := bytes.Split(data, []byte{'\n'})
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		ex, err := UnmarshalRecord(line)
		if err != nil {
			// The final line may be a partially written record from an
			// interrupted append; everything before it must parse.
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("dataset %s line %d: %w", path, i+1, err)
		}
		examples = append(examples, ex)
	}
	return examples, nil
}
