package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Query    string // Query the assertion applies to
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled SQL, when there is one
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (query %s)\n", e.Type, e.Query)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "  SQL: %s\n", e.SQL)
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		out, ok := result.Query(assertion.Query)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: unknown query %q", i, assertion.Query))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(out, assertion)
		case AssertRowsContain:
			err = assertRowsContain(out, assertion)
		case AssertRowsEqual:
			err = assertRowsEqual(out, assertion)
		case AssertColumns:
			err = assertColumns(out, assertion)
		case AssertCompileError:
			err = assertCompileError(out, assertion)
		case AssertSQLContains:
			err = assertSQLContains(out, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// requireSuccess fails an assertion on rows when the query itself failed.
func requireSuccess(out *QueryOutcome, a Assertion) error {
	if out.Error == "" {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    out.Name,
		Expected: "query to succeed",
		Actual:   out.Error,
		SQL:      out.SQL,
	}
}

func assertRowCount(out *QueryOutcome, a Assertion) error {
	if err := requireSuccess(out, a); err != nil {
		return err
	}
	if len(out.Rows) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Query:    out.Name,
			Expected: fmt.Sprintf("%d rows", *a.Count),
			Actual:   fmt.Sprintf("%d rows", len(out.Rows)),
			SQL:      out.SQL,
		}
	}
	return nil
}

// assertRowsContain checks that every expected row matches at least one
// result row. Only the columns named in the expected row are compared.
func assertRowsContain(out *QueryOutcome, a Assertion) error {
	if err := requireSuccess(out, a); err != nil {
		return err
	}
	for _, want := range a.Rows {
		found := false
		for _, got := range out.Rows {
			if matchRow(got, want) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     a.Type,
				Query:    out.Name,
				Expected: fmt.Sprintf("a row matching %s", formatRow(want)),
				Actual:   fmt.Sprintf("%d rows, none matching", len(out.Rows)),
				SQL:      out.SQL,
			}
		}
	}
	return nil
}

// assertRowsEqual checks the result rows one by one, in order. Each row
// must match on every column.
func assertRowsEqual(out *QueryOutcome, a Assertion) error {
	if err := requireSuccess(out, a); err != nil {
		return err
	}
	if len(out.Rows) != len(a.Rows) {
		return &AssertionError{
			Type:     a.Type,
			Query:    out.Name,
			Expected: fmt.Sprintf("%d rows", len(a.Rows)),
			Actual:   fmt.Sprintf("%d rows", len(out.Rows)),
			SQL:      out.SQL,
		}
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != len(out.Rows[i]) || !matchRow(out.Rows[i], a.Rows[i]) {
			return &AssertionError{
				Type:     a.Type,
				Query:    out.Name,
				Expected: fmt.Sprintf("row %d = %s", i, formatRow(a.Rows[i])),
				Actual:   fmt.Sprintf("row %d = %s", i, formatRow(out.Rows[i])),
				SQL:      out.SQL,
			}
		}
	}
	return nil
}

func assertColumns(out *QueryOutcome, a Assertion) error {
	if out.ErrorCode != "" {
		return requireSuccess(out, a)
	}
	if !reflect.DeepEqual(out.Columns, a.Columns) {
		return &AssertionError{
			Type:     a.Type,
			Query:    out.Name,
			Expected: fmt.Sprintf("%v", a.Columns),
			Actual:   fmt.Sprintf("%v", out.Columns),
			SQL:      out.SQL,
		}
	}
	return nil
}

func assertCompileError(out *QueryOutcome, a Assertion) error {
	if out.ErrorCode == a.Code {
		return nil
	}
	actual := "query compiled"
	if out.ErrorCode != "" {
		actual = out.ErrorCode
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    out.Name,
		Expected: a.Code,
		Actual:   actual,
		SQL:      out.SQL,
	}
}

func assertSQLContains(out *QueryOutcome, a Assertion) error {
	if strings.Contains(out.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    out.Name,
		Expected: fmt.Sprintf("SQL containing %q", a.Text),
		Actual:   out.SQL,
	}
}

// matchRow checks if actual contains all expected columns with equal values.
// Extra columns in actual are ignored.
func matchRow(actual, expected map[string]any) bool {
	for col, want := range expected {
		got, ok := actual[col]
		if !ok || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a value decoded from YAML with a value read from
// SQLite. YAML yields int, float64, string, bool and nil; SQLite yields
// int64, float64, string and nil, with booleans stored as 0/1.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case int:
		return numberEqual(float64(exp), actual)
	case int64:
		return numberEqual(float64(exp), actual)
	case float64:
		return numberEqual(exp, actual)
	case bool:
		if act, ok := actual.(bool); ok {
			return exp == act
		}
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

func numberEqual(exp float64, actual any) bool {
	switch act := actual.(type) {
	case int64:
		return exp == float64(act)
	case int:
		return exp == float64(act)
	case float64:
		return exp == act
	}
	return false
}

// formatRow renders a row with sorted keys for stable messages.
func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, row[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
