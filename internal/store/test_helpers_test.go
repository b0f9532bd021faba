package store

import (
	"context"
	"path/filepath"
	"testing"
)

const testSchema = `
CREATE TABLE houses (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE characters (
	id INTEGER PRIMARY KEY,
	name TEXT,
	house_id INTEGER REFERENCES houses(id)
);
INSERT INTO houses (id, name) VALUES (1, 'Targaryen'), (2, 'Velaryon');
INSERT INTO characters (id, name, house_id) VALUES (1, 'Rhaenyra', 1), (2, 'Laenor', 2), (3, 'Addam', NULL);
`

// createTestStore creates a file-backed store loaded with testSchema.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.ExecScript(context.Background(), testSchema); err != nil {
		t.Fatalf("ExecScript() failed: %v", err)
	}
	return s
}
