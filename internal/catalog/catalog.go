// Package catalog describes the base tables a query may reference.
//
// A Catalog is optional. When the engine has one, predicate names that are
// not rules must name a catalog table and argument names must be columns of
// that table. Without one the engine trusts the query text (open world).
package catalog

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Catalog looks up base tables by name.
type Catalog interface {
	Table(name string) (*Table, bool)
}

// Table is a base table and its columns in declaration order.
type Table struct {
	Name    string
	Columns []Column
}

// Column is one column of a base table. Type is informational only
// ("string", "int", "float", "bool" or the store's declared type).
type Column struct {
	Name string
	Type string
}

// HasColumn reports whether the table has a column with the given name.
// Column names are case-sensitive.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Schema is a map-backed Catalog.
type Schema struct {
	tables map[string]*Table
}

// NewSchema returns an empty Schema.
func NewSchema() *Schema {
	return &Schema{tables: make(map[string]*Table)}
}

// Add registers a table. Adding a table name twice is an error.
func (s *Schema) Add(t *Table) error {
	if t.Name == "" {
		return fmt.Errorf("table name must not be empty")
	}
	if _, exists := s.tables[t.Name]; exists {
		return fmt.Errorf("table %q already declared", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	s.tables[t.Name] = t
	return nil
}

// Table implements Catalog.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Tables returns all tables sorted by name.
func (s *Schema) Tables() []*Table {
	tables := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
	return tables
}

// Names returns all table names sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of tables.
func (s *Schema) Len() int {
	return len(s.tables)
}

// Load reads a schema file, choosing the format by extension: .yaml and
// .yml are YAML, anything else (including a directory) is CUE.
func Load(path string) (*Schema, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadCUE(path)
	}
}
