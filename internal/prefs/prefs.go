// Package prefs persists the deleted-row counter the provider uses to decide
// when to compact the database.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// document is the on-disk preferences layout.
type document struct {
	TotalRowsDeleted int64 `yaml:"total_rows_deleted"`
}

// File is a deleted-row counter backed by a YAML file. Every change is
// written through before the call returns.
type File struct {
	mu   sync.Mutex
	path string
	doc  document
}

// OpenFile loads preferences from path. A missing file starts at zero and is
// created on the first write.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f.doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	if f.doc.TotalRowsDeleted < 0 {
		return nil, fmt.Errorf("invalid preferences: total_rows_deleted is negative")
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// TotalRowsDeleted returns the current counter value.
func (f *File) TotalRowsDeleted() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.TotalRowsDeleted
}

// AddTotalRowsDeleted adds n to the counter, persists it, and returns the new
// value. Negative n is ignored so the counter never decreases.
func (f *File) AddTotalRowsDeleted(n int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= 0 {
		return f.doc.TotalRowsDeleted, nil
	}

	next := f.doc
	next.TotalRowsDeleted += n
	if err := f.save(next); err != nil {
		return f.doc.TotalRowsDeleted, err
	}
	f.doc = next
	return f.doc.TotalRowsDeleted, nil
}

// ResetTotalRowsDeleted sets the counter back to zero after compaction.
func (f *File) ResetTotalRowsDeleted() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.doc
	next.TotalRowsDeleted = 0
	if err := f.save(next); err != nil {
		return err
	}
	f.doc = next
	return nil
}

// save writes doc to a temp file in the same directory and renames it over
// the target.
func (f *File) save(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Memory is an in-memory deleted-row counter for tests and ephemeral stores.
type Memory struct {
	mu    sync.Mutex
	total int64
}

// NewMemory returns a Memory counter starting at start.
func NewMemory(start int64) *Memory {
	if start < 0 {
		start = 0
	}
	return &Memory{total: start}
}

// TotalRowsDeleted returns the current counter value.
func (m *Memory) TotalRowsDeleted() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// AddTotalRowsDeleted adds n to the counter and returns the new value.
// Negative n is ignored.
func (m *Memory) AddTotalRowsDeleted(n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.total += n
	}
	return m.total, nil
}

// ResetTotalRowsDeleted sets the counter back to zero.
func (m *Memory) ResetTotalRowsDeleted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = 0
	return nil
}
