package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/drolta/internal/ast"
)

// Scenario defines a conformance test scenario: a script of rules, a list
// of queries against a fixture database, and assertions on their results.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path to a SQL file that creates and fills the tables.
	// Empty means the built-in characters/houses/relations fixture.
	Fixture string `yaml:"fixture,omitempty"`

	// Schema is the path to a CUE or YAML catalog. Empty means the catalog
	// is introspected from the fixture database.
	Schema string `yaml:"schema,omitempty"`

	// Script holds DEFINE and ALIAS statements registered before queries run.
	Script string `yaml:"script,omitempty"`

	// BindParams compiles literals to bind parameters.
	BindParams bool `yaml:"bind_params,omitempty"`

	// MaxDepth bounds rule expansion. Zero means the engine default.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Queries run in order; each is a single FIND statement.
	Queries []QueryStep `yaml:"queries"`

	// Assertions validate the query outcomes.
	Assertions []Assertion `yaml:"assertions"`
}

// QueryStep is one named FIND query.
type QueryStep struct {
	Name string `yaml:"name"`
	Find string `yaml:"find"`
}

// Assertion validates the outcome of one query.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Query names the QueryStep the assertion applies to.
	Query string `yaml:"query"`

	// Count is the expected number of rows (row_count).
	Count *int `yaml:"count,omitempty"`

	// Rows are expected rows keyed by column (rows_contain, rows_equal).
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Columns are the expected result columns (columns).
	Columns []string `yaml:"columns,omitempty"`

	// Code is the expected compile error code (compile_error).
	Code string `yaml:"code,omitempty"`

	// Text must appear in the compiled SQL (sql_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount     = "row_count"
	AssertRowsContain  = "rows_contain"
	AssertRowsEqual    = "rows_equal"
	AssertColumns      = "columns"
	AssertCompileError = "compile_error"
	AssertSQLContains  = "sql_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Fixture and schema paths are used as written.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative fixture and schema paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		scenario.Fixture = resolvePath(basePath, scenario.Fixture)
		scenario.Schema = resolvePath(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by file
// name. Relative paths inside each scenario resolve against dir.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		s, err := LoadScenarioWithBasePath(filepath.Join(dir, name), dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", name, s.Name, prev)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("at least one query is required")
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	queries := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if strings.TrimSpace(q.Find) == "" {
			return fmt.Errorf("queries[%d]: find is required", i)
		}
		if queries[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate query name %q", i, q.Name)
		}
		queries[q.Name] = true
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], queries); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, queries map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Query == "" {
		return fmt.Errorf("assertions[%d]: query is required", index)
	}
	if !queries[a.Query] {
		return fmt.Errorf("assertions[%d]: unknown query %q", index, a.Query)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for row_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertRowsContain, AssertRowsEqual:
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for %s", index, a.Type)
		}
	case AssertColumns:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns is required for columns", index)
		}
	case AssertCompileError:
		if !knownErrorCode(a.Code) {
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func knownErrorCode(code string) bool {
	switch ast.ErrorCode(code) {
	case ast.ErrCodeSyntax, ast.ErrCodeUnknownRelation, ast.ErrCodeUnboundVariable,
		ast.ErrCodeDuplicateRule, ast.ErrCodeArgument, ast.ErrCodeRecursionLimit:
		return true
	}
	return false
}
