package catalog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCUE = `
table: characters: {
	id:       int
	name:     string
	house_id: int | null
}
table: houses: {
	id:   int
	name: string
}
`

const testYAML = `
tables:
  characters: [id, name, house_id]
  houses:
    - id
    - name
`

func TestSchema_AddAndLookup(t *testing.T) {
	s := NewSchema()
	require.NoError(t, s.Add(&Table{Name: "houses", Columns: []Column{{Name: "id"}, {Name: "name"}}}))
	require.NoError(t, s.Add(&Table{Name: "characters", Columns: []Column{{Name: "id"}}}))

	houses, ok := s.Table("houses")
	require.True(t, ok)
	assert.True(t, houses.HasColumn("name"))
	assert.False(t, houses.HasColumn("Name"), "columns are case-sensitive")
	assert.Equal(t, []string{"id", "name"}, houses.ColumnNames())

	_, ok = s.Table("relations")
	assert.False(t, ok)

	assert.Equal(t, []string{"characters", "houses"}, s.Names())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "characters", s.Tables()[0].Name)
}

func TestSchema_AddErrors(t *testing.T) {
	s := NewSchema()
	require.NoError(t, s.Add(&Table{Name: "t", Columns: []Column{{Name: "a"}}}))

	assert.Error(t, s.Add(&Table{Name: "t", Columns: []Column{{Name: "b"}}}), "duplicate table")
	assert.Error(t, s.Add(&Table{Name: "", Columns: []Column{{Name: "b"}}}), "empty name")
	assert.Error(t, s.Add(&Table{Name: "u", Columns: []Column{{Name: "a"}, {Name: "a"}}}), "duplicate column")
}

func TestParseCUE(t *testing.T) {
	s, err := ParseCUE(testCUE)
	require.NoError(t, err)

	chars, ok := s.Table("characters")
	require.True(t, ok)
	assert.Equal(t, []Column{
		{Name: "id", Type: "int"},
		{Name: "name", Type: "string"},
		{Name: "house_id", Type: "int"},
	}, chars.Columns)

	_, ok = s.Table("houses")
	assert.True(t, ok)
}

func TestParseCUE_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"no tables", `other: 1`},
		{"empty table", `table: t: {}`},
		{"unsupported kind", `table: t: { a: [...int] }`},
		{"invalid cue", `table: t: { a: int `},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCUE(tc.src)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	cuePath := filepath.Join(dir, "schema.cue")
	yamlPath := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(cuePath, []byte(testCUE), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(testYAML), 0o644))

	fromCUE, err := Load(cuePath)
	require.NoError(t, err)
	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, fromCUE.Names(), fromYAML.Names())
	for _, name := range fromCUE.Names() {
		a, _ := fromCUE.Table(name)
		b, _ := fromYAML.Table(name)
		assert.Equal(t, a.ColumnNames(), b.ColumnNames(), name)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseYAML_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"tables not a mapping", "tables: [a, b]"},
		{"missing tables", "other: 1"},
		{"columns not a list", "tables:\n  t: {a: 1}"},
		{"empty columns", "tables:\n  t: []"},
		{"duplicate column", "tables:\n  t: [a, a]"},
		{"malformed", "tables: ["},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestIntrospect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE characters (id INTEGER PRIMARY KEY, name TEXT, house_id INTEGER);
		CREATE TABLE houses (id INTEGER PRIMARY KEY, name TEXT);
		CREATE VIEW named AS SELECT name FROM characters;
	`)
	require.NoError(t, err)

	s, err := Introspect(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, []string{"characters", "houses", "named"}, s.Names())

	chars, _ := s.Table("characters")
	assert.Equal(t, []Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "TEXT"},
		{Name: "house_id", Type: "INTEGER"},
	}, chars.Columns)

	view, _ := s.Table("named")
	assert.Equal(t, []string{"name"}, view.ColumnNames())
}
