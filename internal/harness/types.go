package harness

// QueryOutcome records what one scenario query produced.
type QueryOutcome struct {
	Name    string           `json:"name"`
	ID      string           `json:"id,omitempty"`
	SQL     string           `json:"sql,omitempty"`
	Params  []any            `json:"params,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`

	// ErrorCode is set when the query failed to compile.
	ErrorCode string `json:"error_code,omitempty"`

	// Error is the failure message, for compile and execution errors alike.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion holds.
	Pass bool `json:"pass"`

	// Queries holds one outcome per scenario query, in order.
	Queries []QueryOutcome `json:"queries"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Queries: []QueryOutcome{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Query returns the outcome of the named query.
func (r *Result) Query(name string) (*QueryOutcome, bool) {
	for i := range r.Queries {
		if r.Queries[i].Name == name {
			return &r.Queries[i], true
		}
	}
	return nil, false
}
