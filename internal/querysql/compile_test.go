package querysql

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/catalog"
	"github.com/roach88/drolta/internal/parser"
	"github.com/roach88/drolta/internal/registry"
)

const motherRule = `DEFINE Mother(?Child, ?Mother) WHERE relations(from_id=?Child, to_id=?Mother, type="Mother");`

func fixtureCatalog(t *testing.T) *catalog.Schema {
	t.Helper()
	s, err := catalog.ParseYAML([]byte(`
tables:
  characters: [id, name, house_id, sex, life_stage, is_alive]
  houses: [id, name, reputation, is_noble]
  relations: [from_id, to_id, type]
`))
	require.NoError(t, err)
	return s
}

// newCompiler registers the DEFINE statements of script and returns a
// compiler over them. cat may be nil.
func newCompiler(t *testing.T, cat catalog.Catalog, script string) *Compiler {
	t.Helper()
	data := registry.New()
	stmts, err := parser.Parse(script)
	require.NoError(t, err)
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.DefineStatement:
			_, err := data.Define(s, cat)
			require.NoError(t, err)
		case *ast.AliasStatement:
			require.NoError(t, data.AddAlias(s.Name, s.Target, s.Pos, cat))
		default:
			t.Fatalf("unexpected statement %T in script", stmt)
		}
	}
	return NewCompiler(data, cat)
}

func compileWith(t *testing.T, c *Compiler, query string) (*Statement, error) {
	t.Helper()
	find, err := parser.ParseFind(query)
	require.NoError(t, err)
	return c.Compile(find)
}

func mustCompile(t *testing.T, c *Compiler, query string) *Statement {
	t.Helper()
	stmt, err := compileWith(t, c, query)
	require.NoError(t, err)
	return stmt
}

func assertGolden(t *testing.T, name string, stmt *Statement) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(stmt.SQL+"\n"))
}

func TestCompile_CrossJoinSingleTerminator(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?x, ?y WHERE characters(id=?x) characters(id=?y);`)

	assertGolden(t, "cross_join", stmt)
	assert.Equal(t, 1, strings.Count(stmt.SQL, ";"))
	assert.True(t, strings.HasSuffix(stmt.SQL, ";"))
	assert.Equal(t, []string{"x", "y"}, stmt.Columns)
	assert.Empty(t, stmt.Params)
}

func TestCompile_MixedJoinSingleTerminator(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?x, ?y, ?z WHERE characters(id=?x) houses(id=?y) characters(id=?z, house_id=?y)`)

	assert.Equal(t,
		`SELECT t0."id" AS "x", t1."id" AS "y", t2."id" AS "z" FROM "characters" AS t0, "houses" AS t1 INNER JOIN "characters" AS t2 ON t1."id" = t2."house_id";`,
		stmt.SQL)
}

func TestCompile_RuleInline(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), motherRule)
	stmt := mustCompile(t, c, `FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);`)

	assertGolden(t, "rule_inline", stmt)
	assert.NotContains(t, stmt.SQL, `= "Mother"`, "string literal must not be double-quoted")
	assert.Contains(t, stmt.SQL, `= 'Mother'`)
}

func TestCompile_LiteralMatchingAlias(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?x AS "Mother" WHERE relations(from_id=?x, type="Mother");`)

	assert.Equal(t,
		`SELECT t0."from_id" AS "Mother" FROM "relations" AS t0 WHERE t0."type" = 'Mother';`,
		stmt.SQL)
	assert.Equal(t, []string{"Mother"}, stmt.Columns)
}

func TestCompile_Aggregate(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND COUNT(?x) AS "total" WHERE characters(id=?x);`)

	assert.Equal(t, `SELECT COUNT(t0."id") AS "total" FROM "characters" AS t0;`, stmt.SQL)
	assert.Equal(t, []string{"total"}, stmt.Columns)
}

func TestCompile_InnerJoin(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?name, ?house WHERE characters(name=?name, house_id=?h) houses(id=?h, name=?house)`)

	assert.Equal(t,
		`SELECT t0."name" AS "name", t1."name" AS "house" FROM "characters" AS t0 INNER JOIN "houses" AS t1 ON t0."house_id" = t1."id";`,
		stmt.SQL)
}

func TestCompile_NestedRulesHygiene(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), motherRule+`
		DEFINE Grandmother(?c, ?g) WHERE Mother(Child=?c, Mother=?m) Mother(Child=?m, Mother=?g);`)
	stmt := mustCompile(t, c, `FIND ?x, ?y WHERE Grandmother(c=?x, g=?y);`)

	assertGolden(t, "grandmother", stmt)
}

func TestCompile_RuleLocalsDoNotLeak(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), `DEFINE Parent(?c) WHERE relations(from_id=?c, to_id=?p);`)

	// Two calls: each local ?p is distinct, so no join between them.
	stmt := mustCompile(t, c, `FIND ?a, ?b WHERE Parent(c=?a) Parent(c=?b)`)
	assert.Equal(t,
		`SELECT t0."from_id" AS "a", t1."from_id" AS "b" FROM "relations" AS t0, "relations" AS t1;`,
		stmt.SQL)

	// A caller variable named like the rule local is not captured.
	stmt = mustCompile(t, c, `FIND ?p WHERE characters(id=?p) Parent(c=?p)`)
	assert.Equal(t,
		`SELECT t0."id" AS "p" FROM "characters" AS t0 INNER JOIN "relations" AS t1 ON t0."id" = t1."from_id";`,
		stmt.SQL)
}

func TestCompile_UnsuppliedParameter(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), motherRule)
	stmt := mustCompile(t, c, `FIND ?x WHERE Mother(Child=?x)`)

	assert.Equal(t,
		`SELECT t0."from_id" AS "x" FROM "relations" AS t0 WHERE t0."type" = 'Mother';`,
		stmt.SQL)
}

func TestCompile_LiteralRuleArgument(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), motherRule)
	stmt := mustCompile(t, c, `FIND ?x WHERE Mother(Child=?x, Mother=9)`)

	assert.Equal(t,
		`SELECT t0."from_id" AS "x" FROM "relations" AS t0 WHERE t0."to_id" = 9 AND t0."type" = 'Mother';`,
		stmt.SQL)
}

func TestCompile_SharedParameterVariable(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), `DEFINE SelfRel(?x AS "from", ?x AS "to") WHERE relations(from_id=?x, to_id=?x);`)
	stmt := mustCompile(t, c, `FIND ?a, ?b WHERE SelfRel(from=?a, to=?b)`)

	assert.Equal(t,
		`SELECT t0."from_id" AS "a", t0."from_id" AS "b" FROM "relations" AS t0 WHERE t0."from_id" = t0."to_id";`,
		stmt.SQL)
}

func TestCompile_GroupOrderLimit(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `
		FIND ?h, COUNT(?x) AS "n"
		WHERE characters(id=?x, house_id=?h)
		ORDER BY ?h DESC
		GROUP BY ?h
		LIMIT 3 OFFSET 1;`)

	assert.Equal(t,
		`SELECT t0."house_id" AS "h", COUNT(t0."id") AS "n" FROM "characters" AS t0 GROUP BY t0."house_id" ORDER BY t0."house_id" DESC LIMIT 3 OFFSET 1;`,
		stmt.SQL)

	group := strings.Index(stmt.SQL, "GROUP BY")
	order := strings.Index(stmt.SQL, "ORDER BY")
	limit := strings.Index(stmt.SQL, "LIMIT")
	assert.True(t, group < order && order < limit, "clauses must be GROUP BY, ORDER BY, LIMIT")
}

func TestCompile_DerivedTable(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), `
		DEFINE HouseSize(?h, COUNT(?x) AS "size") WHERE characters(id=?x, house_id=?h) GROUP BY ?h;`)
	stmt := mustCompile(t, c, `FIND ?name, ?n WHERE houses(id=?h, name=?name) HouseSize(h=?h, size=?n) ORDER BY ?name;`)

	assertGolden(t, "derived_table", stmt)
	assert.Equal(t, []string{"name", "n"}, stmt.Columns)
}

func TestCompile_Comparisons(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?name WHERE houses(name=?name, reputation=?r, is_noble=true) (?r >= 50) (?name != null);`)

	assertGolden(t, "comparisons", stmt)
}

func TestCompile_NullArgument(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?name WHERE characters(name=?name, house_id=null)`)

	assert.Equal(t,
		`SELECT t0."name" AS "name" FROM "characters" AS t0 WHERE t0."house_id" IS NULL;`,
		stmt.SQL)
}

func TestCompile_SameRelationLink(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), "")
	stmt := mustCompile(t, c, `FIND ?x WHERE relations(from_id=?x, to_id=?x)`)

	assert.Equal(t,
		`SELECT t0."from_id" AS "x" FROM "relations" AS t0 WHERE t0."from_id" = t0."to_id";`,
		stmt.SQL)
}

func TestCompile_Quoting(t *testing.T) {
	c := newCompiler(t, nil, "")
	stmt := mustCompile(t, c, `FIND ?x AS "say \"hi\"" WHERE people(id=?x, name="O'Brien")`)

	assert.Equal(t,
		`SELECT t0."id" AS "say ""hi""" FROM "people" AS t0 WHERE t0."name" = 'O''Brien';`,
		stmt.SQL)
	assert.Equal(t, []string{`say "hi"`}, stmt.Columns)
}

func TestCompile_BindParameters(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), `
		DEFINE Women(?h, COUNT(?x) AS "n") WHERE characters(id=?x, house_id=?h, sex="F") GROUP BY ?h;`)
	c.BindParameters = true

	stmt := mustCompile(t, c, `FIND ?name WHERE houses(id=?h, name=?name, is_noble=true) Women(h=?h) (?name != null)`)

	assert.Equal(t,
		`SELECT t0."name" AS "name" FROM "houses" AS t0 INNER JOIN (SELECT t2."house_id" AS "h", COUNT(t2."id") AS "n" FROM "characters" AS t2 WHERE t2."sex" = ? GROUP BY t2."house_id") AS t1 ON t0."id" = t1."h" WHERE t0."is_noble" = ? AND t0."name" IS NOT NULL;`,
		stmt.SQL)
	assert.Equal(t, []any{"F", true}, stmt.Params, "params follow placeholder order")
}

func TestCompile_Aliases(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), motherRule+`
		ALIAS characters AS people;
		ALIAS Mother AS Mom;`)

	stmt := mustCompile(t, c, `FIND ?n WHERE people(id=?x, name=?n) Mom(Child=?x)`)
	assert.Equal(t,
		`SELECT t0."name" AS "n" FROM "characters" AS t0 INNER JOIN "relations" AS t1 ON t0."id" = t1."from_id" WHERE t1."type" = 'Mother';`,
		stmt.SQL)
}

func TestCompile_Deterministic(t *testing.T) {
	c := newCompiler(t, fixtureCatalog(t), motherRule)
	query := `FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y) characters(id=?y, name=?n)`

	first := mustCompile(t, c, query)
	for i := 0; i < 10; i++ {
		again := mustCompile(t, c, query)
		assert.Equal(t, first.SQL, again.SQL)
	}
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		cat    bool
		script string
		query  string
		check  func(error) bool
	}{
		{
			name:  "unknown relation",
			cat:   true,
			query: `FIND ?x WHERE dragons(id=?x)`,
			check: ast.IsUnknownRelation,
		},
		{
			name:  "unknown column",
			cat:   true,
			query: `FIND ?x WHERE characters(id=?x, title="Prince")`,
			check: ast.IsArgumentError,
		},
		{
			name:   "unknown rule parameter",
			cat:    true,
			script: motherRule,
			query:  `FIND ?x WHERE Mother(Kid=?x)`,
			check:  ast.IsArgumentError,
		},
		{
			name:  "unbound result",
			query: `FIND ?x, ?z WHERE characters(id=?x)`,
			check: ast.IsUnboundVariable,
		},
		{
			name:  "unbound order by",
			query: `FIND ?x WHERE characters(id=?x) ORDER BY ?z`,
			check: ast.IsUnboundVariable,
		},
		{
			name:  "unbound group by",
			query: `FIND ?x WHERE characters(id=?x) GROUP BY ?z`,
			check: ast.IsUnboundVariable,
		},
		{
			name:   "cyclic rules",
			script: `DEFINE Ping(?x) WHERE Pong(x=?x); DEFINE Pong(?x) WHERE Ping(x=?x);`,
			query:  `FIND ?y WHERE Ping(x=?y)`,
			check:  ast.IsRecursionLimit,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var cat catalog.Catalog
			if tc.cat {
				cat = fixtureCatalog(t)
			}
			c := newCompiler(t, cat, tc.script)
			stmt, err := compileWith(t, c, tc.query)
			require.Error(t, err)
			assert.Nil(t, stmt)
			assert.True(t, tc.check(err), "unexpected error: %v", err)
		})
	}
}

func TestCompile_MaxDepth(t *testing.T) {
	c := newCompiler(t, nil, `
		DEFINE A(?x) WHERE t(a=?x);
		DEFINE B(?x) WHERE A(x=?x);
		DEFINE C(?x) WHERE B(x=?x);`)

	c.MaxDepth = 3
	_, err := compileWith(t, c, `FIND ?x WHERE C(x=?x)`)
	require.NoError(t, err)

	c.MaxDepth = 2
	_, err = compileWith(t, c, `FIND ?x WHERE C(x=?x)`)
	require.Error(t, err)
	assert.True(t, ast.IsRecursionLimit(err))
}

func TestCompile_OpenWorld(t *testing.T) {
	c := newCompiler(t, nil, "")
	stmt := mustCompile(t, c, `FIND ?x WHERE anything(whatever=?x)`)
	assert.Equal(t, `SELECT t0."whatever" AS "x" FROM "anything" AS t0;`, stmt.SQL)
}

func TestCompile_Nil(t *testing.T) {
	c := NewCompiler(registry.New(), nil)
	_, err := c.Compile(nil)
	assert.Error(t, err)
}
