package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/catalog"
	"github.com/roach88/drolta/internal/parser"
	"github.com/roach88/drolta/internal/querysql"
	"github.com/roach88/drolta/internal/registry"
)

// Executor runs compiled SQL. It is satisfied by *sql.DB, *sql.Conn,
// *sql.Tx and *store.Store.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Engine holds the rules of one session and compiles queries against them.
type Engine struct {
	data       *registry.EngineData
	catalog    catalog.Catalog
	logger     *slog.Logger
	ids        QueryIDGenerator
	maxDepth   int
	bindParams bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog checks predicate names and argument names against cat.
// Without a catalog every name that is not a rule is taken as a table.
func WithCatalog(cat catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = cat
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth bounds nested rule expansion.
//
// Default: 32 (querysql.DefaultMaxDepth)
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithBindParameters compiles literals to ? placeholders passed to the
// Executor as arguments, instead of inlining them in the SQL text.
func WithBindParameters(enabled bool) Option {
	return func(e *Engine) {
		e.bindParams = enabled
	}
}

// WithQueryIDGenerator sets the generator for Result IDs.
// Default: UUIDv7Generator.
func WithQueryIDGenerator(gen QueryIDGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.ids = gen
		}
	}
}

// New creates an Engine with an empty registry.
func New(opts ...Option) *Engine {
	e := &Engine{
		data:     registry.New(),
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		maxDepth: querysql.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Data returns the rule registry. Callers must not modify it.
func (e *Engine) Data() *registry.EngineData {
	return e.data
}

// Rules returns the registered rules sorted by name.
func (e *Engine) Rules() []*registry.RuleData {
	return e.data.SortedRules()
}

// CycleWarnings reports groups of rules that call each other. Such rules
// fail with a recursion-limit error when queried.
func (e *Engine) CycleWarnings() []registry.CycleWarning {
	return e.data.AnalyzeCycles()
}

// LinkRules checks that every call in a registered rule names a known
// relation with the arguments it has. Queries through a rule that fails
// here fail to compile.
func (e *Engine) LinkRules() []error {
	return e.data.Link(e.catalog)
}

// ExecuteScript parses text and registers every DEFINE and ALIAS in it.
//
// The script is applied atomically: on the first error nothing from the
// script is registered. FIND statements are rejected with a syntax error;
// use Query for them.
func (e *Engine) ExecuteScript(text string) error {
	stmts, err := parser.Parse(text)
	if err != nil {
		return err
	}

	staged := e.data.Clone()
	defined := 0
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.DefineStatement:
			if _, err := staged.Define(s, e.catalog); err != nil {
				return err
			}
			defined++
		case *ast.AliasStatement:
			if err := staged.AddAlias(s.Name, s.Target, s.Pos, e.catalog); err != nil {
				return err
			}
		case *ast.FindStatement:
			return ast.Errorf(ast.ErrCodeSyntax, s.Pos, "FIND is not allowed in a script; run it with Query")
		default:
			return fmt.Errorf("unsupported statement %T", stmt)
		}
	}

	e.data = staged
	e.logger.Debug("script executed",
		"statements", len(stmts),
		"rules_defined", defined,
		"rules_total", len(e.data.Rules),
	)
	return nil
}

// Compile parses a single FIND statement and compiles it to SQL without
// running it.
func (e *Engine) Compile(text string) (*querysql.Statement, error) {
	find, err := parser.ParseFind(text)
	if err != nil {
		return nil, err
	}
	return e.compiler().Compile(find)
}

func (e *Engine) compiler() *querysql.Compiler {
	c := querysql.NewCompiler(e.data, e.catalog)
	c.MaxDepth = e.maxDepth
	c.BindParameters = e.bindParams
	return c
}

// Query compiles a FIND statement and runs it through exec.
//
// Compile errors are returned before exec is called. The caller must
// close the returned Result; QueryFunc does so automatically.
func (e *Engine) Query(ctx context.Context, text string, exec Executor) (*Result, error) {
	stmt, err := e.Compile(text)
	if err != nil {
		return nil, err
	}

	id := e.ids.Generate()
	e.logger.Debug("executing query",
		"query_id", id,
		"sql", stmt.SQL,
		"params", stmt.Params,
	)

	rows, err := exec.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		e.logger.Error("query failed",
			"query_id", id,
			"sql", stmt.SQL,
			"error", err,
		)
		return nil, &ExecutionError{QueryID: id, SQL: stmt.SQL, Params: stmt.Params, Err: err}
	}

	return newResult(id, stmt, rows, e.logger), nil
}

// QueryFunc runs a query and passes the Result to fn. The Result is closed
// when fn returns, whether or not fn fails.
func (e *Engine) QueryFunc(ctx context.Context, text string, exec Executor, fn func(*Result) error) (err error) {
	res, err := e.Query(ctx, text, exec)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := res.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(res)
}
