package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/catalog"
	"github.com/roach88/drolta/internal/engine"
	"github.com/roach88/drolta/internal/store"
)

// EngineOptions holds the flags shared by commands that build an engine.
type EngineOptions struct {
	Database   string // SQLite database path
	Script     string // DEFINE/ALIAS script file
	Schema     string // CUE or YAML catalog file
	BindParams bool   // compile literals to bind parameters
	MaxDepth   int    // rule expansion limit, 0 for the engine default
}

func (o *EngineOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Script, "script", "", "file of DEFINE and ALIAS statements to register first")
	cmd.Flags().StringVar(&o.Schema, "schema", "", "CUE or YAML catalog of base tables (default: introspect --db)")
	cmd.Flags().BoolVar(&o.BindParams, "bind-params", false, "compile literals to bind parameters")
	cmd.Flags().IntVar(&o.MaxDepth, "max-depth", 0, "maximum rule expansion depth (0 = default)")
}

// LoadError is a setup failure that carries a CLI error code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// session is one CLI invocation's engine and, when --db is given, its
// open database.
type session struct {
	store  *store.Store
	engine *engine.Engine
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// openSession opens the database, builds the catalog and registers the
// script. Without --schema or --db the engine has no catalog and accepts
// any table name.
func openSession(ctx context.Context, opts *EngineOptions, logger *slog.Logger) (*session, error) {
	s := &session{}

	if opts.Database != "" {
		if _, err := os.Stat(opts.Database); err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", opts.Database)}
		}
		st, err := store.Open(opts.Database, store.WithQueryOnly())
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDatabase, Message: "failed to open database", Err: err}
		}
		s.store = st
		logger.Debug("database opened", "path", opts.Database)
	}

	cat, err := loadCatalog(ctx, opts, s.store)
	if err != nil {
		s.Close()
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithBindParameters(opts.BindParams),
	}
	if cat != nil {
		engineOpts = append(engineOpts, engine.WithCatalog(cat))
		logger.Debug("catalog loaded", "tables", cat.Len())
	}
	if opts.MaxDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxDepth(opts.MaxDepth))
	}
	s.engine = engine.New(engineOpts...)

	if opts.Script != "" {
		script, err := readFile(opts.Script)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := s.engine.ExecuteScript(script); err != nil {
			s.Close()
			return nil, &LoadError{Code: ErrCodeScript, Message: fmt.Sprintf("script %s rejected", opts.Script), Err: err}
		}
	}

	return s, nil
}

func loadCatalog(ctx context.Context, opts *EngineOptions, st *store.Store) (*catalog.Schema, error) {
	if opts.Schema != "" {
		if _, err := os.Stat(opts.Schema); err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", opts.Schema)}
		}
		cat, err := catalog.Load(opts.Schema)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeSchema, Message: "failed to load schema", Err: err}
		}
		return cat, nil
	}
	if st == nil {
		return nil, nil
	}
	cat, err := st.Catalog(ctx)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDatabase, Message: "failed to introspect database", Err: err}
	}
	return cat, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
		}
		return "", &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("failed to read %s", path), Err: err}
	}
	return string(data), nil
}

// queryText returns the query argument, or standard input when it is "-".
func queryText(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", &LoadError{Code: ErrCodeReadFailed, Message: "failed to read query from stdin", Err: err}
	}
	return string(data), nil
}

// newLogger builds the text logger for a command. Logs go to stderr so
// they never mix with JSON output.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// outputLoadError reports a setup failure and returns the matching
// ExitError. Script errors are failures of the user's input (exit 1);
// everything else is a command error (exit 2).
func outputLoadError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "command failed", err)
	}

	message := loadErr.Message
	if loadErr.Err != nil {
		message = fmt.Sprintf("%s: %v", loadErr.Message, loadErr.Err)
	}
	_ = f.Error(loadErr.Code, message, compileErrorDetails(loadErr.Err))

	code := ExitCommandError
	if loadErr.Code == ErrCodeScript {
		code = ExitFailure
	}
	return WrapExitError(code, loadErr.Code, err)
}

// CompileErrorDetails is the JSON detail of a query or script that failed
// to compile.
type CompileErrorDetails struct {
	Code   string `json:"code"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// compileErrorDetails returns nil when err is not a compile error.
func compileErrorDetails(err error) any {
	var ce *ast.CompileError
	if !errors.As(err, &ce) {
		return nil
	}
	return CompileErrorDetails{Code: string(ce.Code), Line: ce.Pos.Line, Column: ce.Pos.Col}
}
