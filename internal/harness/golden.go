package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the compiled SQL of every query of a result:
//
//	-- mothers
//	SELECT ...;
//
// Bind parameters and compile errors are recorded as comment lines. Rows
// are not included; assertions cover them.
func Snapshot(result *Result) []byte {
	var buf strings.Builder
	for i, q := range result.Queries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "-- %s\n", q.Name)
		if q.ErrorCode != "" {
			fmt.Fprintf(&buf, "-- error: %s\n", q.ErrorCode)
			continue
		}
		if len(q.Params) > 0 {
			fmt.Fprintf(&buf, "-- params: %v\n", q.Params)
		}
		buf.WriteString(q.SQL)
		buf.WriteByte('\n')
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario, fails the test if any assertion
// fails, and compares the compiled SQL against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
