package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stream is a named cursor into the storage index.
type Stream struct {
	storage *Storage
	name    string
}

// Stream returns the stream called name. The name becomes part of a file
// name inside the storage, so it must not be empty, contain a path
// separator or be a dot name.
func (s *Storage) Stream(name string) (*Stream, error) {
	if !validStreamName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStream, name)
	}
	return &Stream{storage: s, name: name}, nil
}

func validStreamName(name string) bool {
	return name != "" && name != "." && !strings.Contains(name, "..") &&
		!strings.ContainsAny(name, `/\`+string(filepath.Separator)) &&
		filepath.Base(name) == name
}

// Name returns the stream name.
func (st *Stream) Name() string { return st.name }

func (st *Stream) cursorPath() string {
	return filepath.Join(st.storage.dir, ".dali-stream-"+st.name+".txt")
}

// Update moves the cursor to name, marking it and everything indexed
// before it as seen.
func (st *Stream) Update(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.WriteFile(st.cursorPath(), []byte(name), 0o644); err != nil {
		return fmt.Errorf("resource: update stream %s: %w", st.name, err)
	}
	return nil
}

// Cursor returns the last name passed to Update, or "".
func (st *Stream) Cursor() (string, error) {
	b, err := os.ReadFile(st.cursorPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resource: read stream %s: %w", st.name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// NewItems returns the stored names indexed after the cursor, oldest
// first. Without a cursor it returns every stored name.
func (st *Stream) NewItems() ([]string, error) {
	cursor, err := st.Cursor()
	if err != nil {
		return nil, err
	}
	names, err := st.storage.List()
	if err != nil {
		return nil, err
	}
	if cursor == "" {
		return names, nil
	}
	for i := len(names) - 1; i >= 0; i-- {
		if names[i] == cursor {
			return names[i+1:], nil
		}
	}
	return names, nil
}
