package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	EngineOptions
	Output string // output file path
}

// CompileOutput is the JSON payload of a compiled query.
type CompileOutput struct {
	SQL     string   `json:"sql"`
	Params  []any    `json:"params,omitempty"`
	Columns []string `json:"columns"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <find-statement>",
		Short: "Compile a FIND query to SQL without running it",
		Long: `Compile a FIND query to SQL and print it.

Base tables come from --schema, or are introspected from --db. With
neither, any table name is accepted and column names are not checked.
Pass "-" to read the query from standard input.

Examples:
  drolta compile 'FIND ?name WHERE characters(name=?name);'
  drolta compile --schema schema.cue --script rules.drolta 'FIND ?x WHERE Mother(Child=?x);'
  drolta compile --db got.db --bind-params -o query.sql -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to introspect for base tables")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	opts.EngineOptions.addFlags(cmd)

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	text, err := queryText(cmd, arg)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	s, err := openSession(commandContext(cmd), &opts.EngineOptions, logger)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer s.Close()

	formatter.VerboseLog("Registered %d rule(s)", len(s.engine.Rules()))

	stmt, err := s.engine.Compile(text)
	if err != nil {
		return outputQueryError(formatter, err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(stmt.SQL+"\n"), 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		formatter.VerboseLog("Wrote SQL to %s", opts.Output)
	}

	if opts.Format == "json" {
		return formatter.Success(CompileOutput{
			SQL:     stmt.SQL,
			Params:  stmt.Params,
			Columns: stmt.Columns,
		})
	}

	w := formatter.Writer
	fmt.Fprintln(w, stmt.SQL)
	if len(stmt.Params) > 0 {
		fmt.Fprintf(w, "-- params: %v\n", stmt.Params)
	}
	return nil
}
