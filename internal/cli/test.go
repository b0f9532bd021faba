package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/drolta/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Golden string // golden file directory
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios.

Each scenario loads a fixture into a fresh in-memory database, registers
its script, runs its queries and checks its assertions. When a golden
file <golden-dir>/<name>.golden exists, the compiled SQL must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  drolta test ./scenarios
  drolta test ./scenarios --filter "mother*"
  drolta test ./scenarios --golden ./golden --update
  drolta test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	goldenDir := opts.Golden
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(formatter, scenarioFile, scenariosDir, goldenDir, opts.Update, harness.WithLogger(logger))
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds the YAML scenario files directly inside dir.
// The filter is matched against the file name without extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, _ := filepath.Match(filter, strings.TrimSuffix(entry.Name(), ext))
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(f *OutputFormatter, scenarioFile, baseDir, goldenDir string, update bool, opts ...harness.Option) ScenarioResult {
	scenario, err := harness.LoadScenarioWithBasePath(scenarioFile, baseDir)
	if err != nil {
		return failScenario(f, filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}
	f.VerboseLog("Running %s (%d queries)", scenario.Name, len(scenario.Queries))

	result, err := harness.Run(scenario, opts...)
	if err != nil {
		return failScenario(f, scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	goldenPath := filepath.Join(goldenDir, scenario.Name+".golden")
	snapshot := harness.Snapshot(result)

	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			return failScenario(f, scenario.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		if !result.Pass {
			return failScenario(f, scenario.Name, result.Errors...)
		}
		f.Pass("%s (golden updated)", scenario.Name)
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	errs := append([]string(nil), result.Errors...)
	golden, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No golden file: assertions alone decide.
	case err != nil:
		errs = append(errs, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, snapshot):
		errs = append(errs, "compiled SQL does not match golden file (run with --update to regenerate)")
	}

	if len(errs) > 0 {
		return failScenario(f, scenario.Name, errs...)
	}
	f.Pass("%s", scenario.Name)
	return ScenarioResult{Name: scenario.Name, Pass: true}
}

func failScenario(f *OutputFormatter, name string, errs ...string) ScenarioResult {
	f.Fail("%s", name)
	if f.Format != "json" {
		for _, e := range errs {
			fmt.Fprintf(f.Writer, "  %s\n", strings.TrimRight(e, "\n"))
		}
	}
	return ScenarioResult{Name: name, Pass: false, Errors: errs}
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(f *OutputFormatter, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := f.encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(f *OutputFormatter, result TestResult) error {
	w := f.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	f.Pass("All scenarios passed")
	return nil
}
