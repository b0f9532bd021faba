package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/registry"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	EngineOptions
}

// RuleSummary describes one registered rule.
type RuleSummary struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Calls  []string `json:"calls"`
}

// CheckError is a rejected script, or a registered rule whose calls do
// not resolve (File is empty).
type CheckError struct {
	File    string `json:"file,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// CheckResult holds the outcome of checking scripts.
type CheckResult struct {
	Valid   bool                    `json:"valid"`
	Rules   []RuleSummary           `json:"rules"`
	Aliases map[string]string       `json:"aliases,omitempty"`
	Cycles  []registry.CycleWarning `json:"cycles,omitempty"`
	Errors  []CheckError            `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <script>...",
		Short: "Validate scripts and list their rules",
		Long: `Parse and register DEFINE and ALIAS scripts without running queries.

Scripts are registered in order. A rejected script registers nothing and
checking continues with the next file. Once all files are in, every call
in every rule must name a rule or a known table with matching argument
names. Rules that call each other are reported as warnings: queries
through them fail with RECURSION_LIMIT.

Exit codes:
  0 - All scripts valid
  1 - One or more scripts rejected, or a rule call does not resolve
  2 - Command error (missing files, unreadable schema, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to introspect for base tables")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE or YAML catalog of base tables (default: introspect --db)")

	return cmd
}

func runCheck(opts *CheckOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	// Read everything first: a missing file is a command error, not a
	// rejected script.
	scripts := make([]string, len(files))
	for i, path := range files {
		text, err := readFile(path)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		scripts[i] = text
	}

	s, err := openSession(commandContext(cmd), &opts.EngineOptions, logger)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer s.Close()

	result := CheckResult{Valid: true, Rules: []RuleSummary{}}
	for i, path := range files {
		formatter.VerboseLog("Checking %s", path)
		if err := s.engine.ExecuteScript(scripts[i]); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, newCheckError(path, err))
		}
	}

	// Calls are resolved only now: rules may use rules from later files.
	for _, err := range s.engine.LinkRules() {
		result.Valid = false
		result.Errors = append(result.Errors, newCheckError("", err))
	}

	data := s.engine.Data()
	for _, rule := range s.engine.Rules() {
		result.Rules = append(result.Rules, RuleSummary{
			Name:   rule.Name,
			Params: rule.ParamNames(),
			Calls:  rule.Calls(),
		})
	}
	if len(data.Aliases) > 0 {
		result.Aliases = data.Aliases
	}
	result.Cycles = s.engine.CycleWarnings()

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputCheckText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d error(s)", len(result.Errors)))
	}
	return nil
}

func newCheckError(path string, err error) CheckError {
	ce := CheckError{File: path, Code: ErrCodeScript, Message: err.Error()}
	var compileErr *ast.CompileError
	if errors.As(err, &compileErr) {
		ce.Code = string(compileErr.Code)
		ce.Message = compileErr.Message
		ce.Line = compileErr.Pos.Line
		ce.Column = compileErr.Pos.Col
	}
	return ce
}

func outputCheckText(f *OutputFormatter, result CheckResult) {
	w := f.Writer

	for _, e := range result.Errors {
		switch {
		case e.File == "":
			f.Fail("%s: %s", e.Code, e.Message)
		case e.Line > 0:
			f.Fail("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
		default:
			f.Fail("%s: %s: %s", e.File, e.Code, e.Message)
		}
	}
	if result.Valid {
		f.Pass("Registered %d rule(s), %d alias(es)", len(result.Rules), len(result.Aliases))
	}

	if len(result.Rules) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rules:")
		for _, r := range result.Rules {
			fmt.Fprintf(w, "  %s(%s)\n", r.Name, strings.Join(r.Params, ", "))
		}
	}

	if len(result.Aliases) > 0 {
		names := make([]string, 0, len(result.Aliases))
		for name := range result.Aliases {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Aliases:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s → %s\n", name, result.Aliases[name])
		}
	}

	if len(result.Cycles) > 0 {
		fmt.Fprintln(w)
		for _, c := range result.Cycles {
			f.Warn("%s", c.Message)
		}
	}
}
