package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/engine"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	EngineOptions
}

// QueryOutput is the JSON payload of a successful query.
type QueryOutput struct {
	SQL     string           `json:"sql"`
	Params  []any            `json:"params,omitempty"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <find-statement>",
		Short: "Run a FIND query against a SQLite database",
		Long: `Compile a FIND query to SQL and run it against a SQLite database.

Rules from --script are registered first. The database is opened
read-only; base tables are introspected from it unless --schema is given.
Pass "-" to read the query from standard input.

Exit codes:
  0 - Query ran
  1 - Query or script failed to compile, or the database rejected the SQL
  2 - Command error (database not found, unreadable schema, etc.)

Examples:
  drolta query --db got.db 'FIND ?name WHERE characters(name=?name);'
  drolta query --db got.db --script rules.drolta 'FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);'
  drolta query --db got.db --format json - < query.drolta`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	opts.EngineOptions.addFlags(cmd)

	return cmd
}

func runQuery(opts *QueryOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	text, err := queryText(cmd, arg)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	s, err := openSession(ctx, &opts.EngineOptions, logger)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	res, err := s.engine.Query(ctx, text, s.store)
	if err != nil {
		return outputQueryError(formatter, err)
	}
	defer res.Close()

	formatter.VerboseLog("-- %s", res.SQL())
	if len(res.Params()) > 0 {
		formatter.VerboseLog("-- params: %v", res.Params())
	}

	rows, err := res.FetchAll()
	if err != nil {
		return outputQueryError(formatter, err)
	}

	if opts.Format == "json" {
		out := QueryOutput{
			SQL:     res.SQL(),
			Params:  res.Params(),
			Columns: res.Columns(),
			Rows:    make([]map[string]any, len(rows)),
		}
		for i, row := range rows {
			out.Rows[i] = row.Map(res.Columns())
		}
		return formatter.encode(CLIResponse{Status: "ok", Data: out, QueryID: res.ID()})
	}

	fmt.Fprint(formatter.Writer, formatTable(res.Columns(), rows))
	return nil
}

// outputQueryError reports a compile or execution failure (exit 1).
func outputQueryError(f *OutputFormatter, err error) error {
	var execErr *engine.ExecutionError
	switch {
	case errors.As(err, &execErr):
		_ = f.Error(ErrCodeExecution, execErr.Err.Error(), map[string]any{
			"query_id": execErr.QueryID,
			"sql":      execErr.SQL,
		})
		return WrapExitError(ExitFailure, "query failed", err)
	default:
		code := ErrCodeGeneric
		if _, ok := ast.CodeOf(err); ok {
			code = ErrCodeCompile
		}
		_ = f.Error(code, err.Error(), compileErrorDetails(err))
		return WrapExitError(ExitFailure, "query failed", err)
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
