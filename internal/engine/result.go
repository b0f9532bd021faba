package engine

import (
	"database/sql"
	"log/slog"

	"github.com/roach88/drolta/internal/querysql"
)

// Row is one result row, with values in FIND column order.
// TEXT values are strings; BLOB values are converted to strings too.
type Row []any

// Map returns the row keyed by column name.
func (r Row) Map(columns []string) map[string]any {
	m := make(map[string]any, len(columns))
	for i, col := range columns {
		if i < len(r) {
			m[col] = r[i]
		}
	}
	return m
}

// Result is the open cursor of a running query.
//
// A Result holds a database connection until it is exhausted or closed.
// Close is idempotent.
type Result struct {
	id      string
	sql     string
	params  []any
	columns []string

	rows    *sql.Rows
	width   int
	fetched int
	closed  bool
	logger  *slog.Logger
}

func newResult(id string, stmt *querysql.Statement, rows *sql.Rows, logger *slog.Logger) *Result {
	width := len(stmt.Columns)
	if cols, err := rows.Columns(); err == nil {
		width = len(cols)
	}
	return &Result{
		id:      id,
		sql:     stmt.SQL,
		params:  stmt.Params,
		columns: stmt.Columns,
		rows:    rows,
		width:   width,
		logger:  logger,
	}
}

// ID returns the query ID used in log lines.
func (r *Result) ID() string { return r.id }

// SQL returns the compiled statement.
func (r *Result) SQL() string { return r.sql }

// Params returns the bind values sent with SQL.
func (r *Result) Params() []any { return r.params }

// Columns returns the result column names in FIND order.
func (r *Result) Columns() []string { return r.columns }

// FetchOne returns the next row, or nil when no rows remain.
func (r *Result) FetchOne() (Row, error) {
	if r.closed {
		return nil, ErrResultClosed
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, r.wrap(err)
		}
		return nil, nil
	}
	return r.scan()
}

// FetchAll returns all remaining rows. The slice is empty, not nil, when
// there are none.
func (r *Result) FetchAll() ([]Row, error) {
	out := []Row{}
	for {
		row, err := r.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

// Close releases the cursor. Calling Close more than once is a no-op.
func (r *Result) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.rows.Close()
	r.logger.Debug("query closed",
		"query_id", r.id,
		"rows", r.fetched,
	)
	if err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *Result) scan() (Row, error) {
	values := make([]any, r.width)
	ptrs := make([]any, r.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, r.wrap(err)
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	r.fetched++

	// A query with no result variables selects a placeholder column.
	if len(r.columns) < len(values) {
		values = values[:len(r.columns)]
	}
	return Row(values), nil
}

func (r *Result) wrap(err error) error {
	return &ExecutionError{QueryID: r.id, SQL: r.sql, Params: r.params, Err: err}
}
