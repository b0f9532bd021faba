package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/catalog"
	"github.com/roach88/drolta/internal/engine"
	"github.com/roach88/drolta/internal/store"
	"github.com/roach88/drolta/internal/testutil"
)

// Harness runs the queries of one scenario.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	logger *slog.Logger
}

// WithLogger sends engine logs to logger. By default they are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runOptions) { o.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create the in-memory database and load the fixture
//  2. Build the catalog (schema file or introspection)
//  3. Register the script
//  4. Run each query and record its outcome
//  5. Evaluate assertions
//
// Errors in setup (fixture, schema, script) are returned as errors. Query
// failures are recorded in the result, where assertions can check them.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := loadFixture(ctx, st, scenario.Fixture); err != nil {
		return nil, err
	}

	cat, err := loadCatalog(ctx, st, scenario.Schema)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithCatalog(cat),
		engine.WithLogger(o.logger),
		engine.WithBindParameters(scenario.BindParams),
		engine.WithQueryIDGenerator(testutil.NewSequenceGenerator(scenario.Name)),
	}
	if scenario.MaxDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxDepth(scenario.MaxDepth))
	}
	eng := engine.New(engineOpts...)

	if scenario.Script != "" {
		if err := eng.ExecuteScript(scenario.Script); err != nil {
			return nil, fmt.Errorf("failed to execute script: %w", err)
		}
	}

	h := &Harness{store: st, engine: eng, logger: o.logger}

	result := NewResult()
	for _, q := range scenario.Queries {
		result.Queries = append(result.Queries, h.runQuery(ctx, q))
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func loadFixture(ctx context.Context, st *store.Store, path string) error {
	script := testutil.FixtureSQL
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read fixture: %w", err)
		}
		script = string(data)
	}
	if err := st.ExecScript(ctx, script); err != nil {
		return fmt.Errorf("failed to load fixture: %w", err)
	}
	return nil
}

func loadCatalog(ctx context.Context, st *store.Store, path string) (*catalog.Schema, error) {
	if path == "" {
		return st.Catalog(ctx)
	}
	schema, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return schema, nil
}

func (h *Harness) runQuery(ctx context.Context, q QueryStep) QueryOutcome {
	out := QueryOutcome{Name: q.Name}

	// Compile separately so the SQL is recorded even if execution fails.
	stmt, err := h.engine.Compile(q.Find)
	if err != nil {
		if code, ok := ast.CodeOf(err); ok {
			out.ErrorCode = string(code)
		}
		out.Error = err.Error()
		return out
	}
	out.SQL = stmt.SQL
	out.Params = stmt.Params
	out.Columns = stmt.Columns

	err = h.engine.QueryFunc(ctx, q.Find, h.store, func(r *engine.Result) error {
		out.ID = r.ID()
		rows, err := r.FetchAll()
		if err != nil {
			return err
		}
		out.Rows = make([]map[string]any, len(rows))
		for i, row := range rows {
			out.Rows[i] = row.Map(r.Columns())
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("scenario query failed", "query", q.Name, "error", err)
		out.Error = err.Error()
	}
	return out
}
