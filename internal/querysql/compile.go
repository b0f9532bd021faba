// Package querysql compiles FIND statements into SQLite SQL.
//
// Compilation runs in three stages for every SELECT it produces:
//
//  1. expand: predicate calls are resolved through the registry. Calls to
//     simple rules are inlined with their local variables renamed; calls
//     to rules with aggregates or ORDER/GROUP/LIMIT become derived tables.
//     Every base-table occurrence gets a fresh alias t0, t1, ...
//  2. unify: literal arguments become filters; each variable's column
//     occurrences are chained with equality links.
//  3. emit: FROM (inner joins where a link exists, comma joins otherwise),
//     WHERE, GROUP BY, ORDER BY, LIMIT, in that order.
//
// Identifiers are always double-quoted and string literals single-quoted.
package querysql

import (
	"fmt"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/catalog"
	"github.com/roach88/drolta/internal/registry"
)

// DefaultMaxDepth bounds rule expansion when Compiler.MaxDepth is zero.
const DefaultMaxDepth = 32

// Compiler compiles FIND statements against a rule registry.
//
// Data is only read. Catalog may be nil, in which case unknown predicate
// names are taken as tables and argument names are not checked.
type Compiler struct {
	Data    *registry.EngineData
	Catalog catalog.Catalog

	// MaxDepth bounds nested rule expansion. Zero means DefaultMaxDepth.
	MaxDepth int

	// BindParameters emits literals as ? placeholders with their values in
	// Statement.Params instead of inlining them.
	BindParameters bool
}

// NewCompiler creates a Compiler. cat may be nil.
func NewCompiler(data *registry.EngineData, cat catalog.Catalog) *Compiler {
	return &Compiler{
		Data:     data,
		Catalog:  cat,
		MaxDepth: DefaultMaxDepth,
	}
}

// Statement is a compiled query.
type Statement struct {
	// SQL is a single statement ending in exactly one ';'.
	SQL string

	// Params holds bind values in placeholder order. Empty unless
	// BindParameters is set.
	Params []any

	// Columns are the result column names in FIND order.
	Columns []string
}

// Compile converts a FIND statement to SQL.
// All errors are *ast.CompileError values.
func (c *Compiler) Compile(find *ast.FindStatement) (*Statement, error) {
	if find == nil {
		return nil, fmt.Errorf("cannot compile nil query")
	}
	if err := ast.CheckBound(find.Results, find.Where, find.Tail); err != nil {
		return nil, err
	}

	st := &compilation{c: c, data: c.Data}
	if st.data == nil {
		st.data = registry.New()
	}

	q, err := st.buildSelect(find.Results, find.Where, find.Tail, 0)
	if err != nil {
		return nil, err
	}

	return &Statement{
		SQL:     q.sql + ";",
		Params:  q.params,
		Columns: q.columns,
	}, nil
}

func (c *Compiler) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// compilation holds the counters shared by every SELECT of one Compile
// call, so aliases stay unique across derived tables.
type compilation struct {
	c         *Compiler
	data      *registry.EngineData
	aliases   int
	instances int
}

func (st *compilation) nextAlias() string {
	alias := fmt.Sprintf("t%d", st.aliases)
	st.aliases++
	return alias
}

func (st *compilation) nextInstance() int {
	st.instances++
	return st.instances
}

// fragment is an emitted SELECT without the trailing terminator.
type fragment struct {
	sql     string
	params  []any
	columns []string
}

// buildSelect compiles one SELECT: the top-level FIND or the body of a
// rule used as a derived table.
func (st *compilation) buildSelect(results []ast.ResultVariable, body []ast.Expression, tail ast.Tail, depth int) (*fragment, error) {
	b := &builder{st: st}

	if err := b.expandBody(body, &scope{}, depth); err != nil {
		return nil, err
	}
	if err := b.unify(); err != nil {
		return nil, err
	}
	return b.emit(results, tail)
}
