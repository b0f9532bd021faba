package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Text(t *testing.T) {
	db := fixtureDB(t)

	stdout, _, err := execute(t, "query", "--db", db, `FIND ?name WHERE characters(id=4, name=?name);`)
	require.NoError(t, err)

	assert.Contains(t, stdout, "name")
	assert.Contains(t, stdout, "Jacaerys")
	assert.Contains(t, stdout, "_1 rows_")
}

func TestQuery_WithScript(t *testing.T) {
	db := fixtureDB(t)
	script := writeFile(t, "rules.drolta", motherScript)

	stdout, _, err := execute(t, "query", "--db", db, "--script", script,
		`FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);`)
	require.NoError(t, err)
	assert.Contains(t, stdout, "_7 rows_")
}

func TestQuery_NoRows(t *testing.T) {
	db := fixtureDB(t)

	stdout, _, err := execute(t, "query", "--db", db, `FIND ?name WHERE characters(id=999, name=?name);`)
	require.NoError(t, err)
	assert.Contains(t, stdout, "_No rows_")
}

func TestQuery_JSON(t *testing.T) {
	db := fixtureDB(t)
	script := writeFile(t, "rules.drolta", motherScript)

	stdout, _, err := execute(t, "--format", "json", "query", "--db", db, "--script", script, "--bind-params",
		`FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);`)
	require.NoError(t, err)

	var resp struct {
		Status  string      `json:"status"`
		QueryID string      `json:"query_id"`
		Data    QueryOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.QueryID)
	assert.Equal(t, []string{"x", "y"}, resp.Data.Columns)
	assert.Equal(t, []any{"Mother"}, resp.Data.Params)
	assert.Len(t, resp.Data.Rows, 7)
	assert.Contains(t, resp.Data.Rows, map[string]any{"x": float64(4), "y": float64(1)})
	assert.True(t, strings.HasSuffix(resp.Data.SQL, "= ?;"), resp.Data.SQL)
}

func TestQuery_Stdin(t *testing.T) {
	db := fixtureDB(t)

	cmd := NewRootCommand()
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetErr(&strings.Builder{})
	cmd.SetIn(strings.NewReader(`FIND ?name WHERE houses(id=2, name=?name);`))
	cmd.SetArgs([]string{"query", "--db", db, "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Velaryon")
}

func TestQuery_VerboseShowsSQL(t *testing.T) {
	db := fixtureDB(t)

	_, stderr, err := execute(t, "query", "-v", "--db", db, `FIND ?name WHERE houses(id=2, name=?name);`)
	require.NoError(t, err)

	assert.Contains(t, stderr, `-- SELECT t0."name" AS "name" FROM "houses" AS t0 WHERE t0."id" = 2;`)
	assert.Contains(t, stderr, "executing query")
}

func TestQuery_CompileError(t *testing.T) {
	db := fixtureDB(t)

	stdout, _, err := execute(t, "--format", "json", "query", "--db", db, `FIND ?x WHERE dragons(id=?x);`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok, "details = %#v", resp.Error.Details)
	assert.Equal(t, "UNKNOWN_RELATION", details["code"])
}

func TestQuery_ExecutionError(t *testing.T) {
	db := fixtureDB(t)
	schema := writeFile(t, "schema.yaml", "tables:\n  ghosts: [id]\n")

	stdout, _, err := execute(t, "query", "--db", db, "--schema", schema, `FIND ?x WHERE ghosts(id=?x);`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E009]")
	assert.Contains(t, stdout, "no such table")
}

func TestQuery_ScriptRejected(t *testing.T) {
	db := fixtureDB(t)
	script := writeFile(t, "rules.drolta", motherScript+motherScript)

	stdout, _, err := execute(t, "query", "--db", db, "--script", script, `FIND ?x WHERE Mother(Child=?x);`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E006]")
	assert.Contains(t, stdout, "DUPLICATE_RULE")
}

func TestQuery_CommandErrors(t *testing.T) {
	db := fixtureDB(t)

	testCases := []struct {
		name string
		args []string
		code string
	}{
		{"missing database", []string{"--db", "/nonexistent/drolta.db"}, ErrCodeNotFound},
		{"missing script", []string{"--db", db, "--script", "/nonexistent/rules.drolta"}, ErrCodeNotFound},
		{"missing schema", []string{"--db", db, "--schema", "/nonexistent/schema.cue"}, ErrCodeNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"query"}, tc.args...)
			args = append(args, `FIND ?x WHERE characters(id=?x);`)

			stdout, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+tc.code+"]")
		})
	}
}

func TestQuery_DatabaseRequired(t *testing.T) {
	_, _, err := execute(t, "query", `FIND ?x WHERE characters(id=?x);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", formatValue(nil))
	assert.Equal(t, "Rhaenyra", formatValue("Rhaenyra"))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "2.5", formatValue(2.5))
	assert.Equal(t, "true", formatValue(true))
}
