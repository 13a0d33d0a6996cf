package store

import (
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTrack inserts a minimal track and returns its id.
func insertTrack(t *testing.T, s *Store) int64 {
	t.Helper()
	res, err := s.db.Exec("INSERT INTO tracks (name) VALUES ('test')")
	if err != nil {
		t.Fatalf("insert track: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

// insertPoint inserts a trackpoint with the given time.
func insertPoint(t *testing.T, s *Store, trackID, timeMillis int64) {
	t.Helper()
	if _, err := s.db.Exec("INSERT INTO trackpoints (trackid, time) VALUES (?, ?)", trackID, timeMillis); err != nil {
		t.Fatalf("insert trackpoint: %v", err)
	}
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
