package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mothersSQL = `SELECT t0."from_id" AS "x", t0."to_id" AS "y" FROM "relations" AS t0 WHERE t0."type" = 'Mother';`

func TestCompile_OpenWorld(t *testing.T) {
	stdout, _, err := execute(t, "compile", `FIND ?x, ?y WHERE relations(from_id=?x, to_id=?y, type="Mother");`)
	require.NoError(t, err)
	assert.Equal(t, mothersSQL+"\n", stdout)
}

func TestCompile_WithScript(t *testing.T) {
	script := writeFile(t, "rules.drolta", motherScript)

	stdout, _, err := execute(t, "compile", "--script", script, `FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);`)
	require.NoError(t, err)
	assert.Equal(t, mothersSQL+"\n", stdout)
}

func TestCompile_BindParams(t *testing.T) {
	stdout, _, err := execute(t, "compile", "--bind-params",
		`FIND ?x, ?y WHERE relations(from_id=?x, to_id=?y, type="Mother");`)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT t0."from_id" AS "x", t0."to_id" AS "y" FROM "relations" AS t0 WHERE t0."type" = ?;`+"\n"+
			"-- params: [Mother]\n",
		stdout)
}

func TestCompile_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "compile",
		`FIND ?x, ?y WHERE relations(from_id=?x, to_id=?y, type="Mother");`)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, mothersSQL, resp.Data.SQL)
	assert.Equal(t, []string{"x", "y"}, resp.Data.Columns)
	assert.Empty(t, resp.Data.Params)
}

func TestCompile_OutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mothers.sql")

	_, _, err := execute(t, "compile", "-o", out, `FIND ?x, ?y WHERE relations(from_id=?x, to_id=?y, type="Mother");`)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, mothersSQL+"\n", string(data))
}

func TestCompile_OutputFileUnwritable(t *testing.T) {
	stdout, _, err := execute(t, "compile", "-o", "/nonexistent/dir/out.sql", `FIND ?x WHERE t(a=?x);`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E007]")
}

func TestCompile_SchemaChecksTables(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "tables:\n  relations: [from_id, to_id, type]\n")

	stdout, _, err := execute(t, "compile", "--schema", schema, `FIND ?x WHERE characters(id=?x);`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E008]")
	assert.Contains(t, stdout, "UNKNOWN_RELATION")
}

func TestCompile_IntrospectsDatabase(t *testing.T) {
	db := fixtureDB(t)

	_, _, err := execute(t, "compile", "--db", db, `FIND ?x WHERE characters(id=?x, title=?t);`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, "compile", "--db", db, `FIND ?x WHERE characters(id=?x);`)
	require.NoError(t, err)
}

func TestCompile_SyntaxError(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "compile", `FIND ?x WHERE`)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SYNTAX_ERROR", details["code"])
}

func TestCompile_MaxDepth(t *testing.T) {
	script := writeFile(t, "rules.drolta", motherScript+`
DEFINE Grandmother(?Child, ?Grandmother)
WHERE Mother(Child=?Child, Mother=?m) Mother(Child=?m, Mother=?Grandmother);
`)

	_, _, err := execute(t, "compile", "--script", script, "--max-depth", "1",
		`FIND ?x WHERE Grandmother(Child=?x);`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, "compile", "--script", script, `FIND ?x WHERE Grandmother(Child=?x);`)
	require.NoError(t, err)
}
