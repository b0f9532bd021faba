package engine

import (
	"errors"
	"fmt"
)

// ErrResultClosed is returned when fetching from a closed Result.
var ErrResultClosed = errors.New("result is closed")

// ExecutionError is a failure reported by the Executor for compiled SQL.
//
// The driver error is kept unchanged and reachable through errors.Is and
// errors.As; SQL and Params record what was sent.
type ExecutionError struct {
	// QueryID identifies the query in logs.
	QueryID string

	// SQL is the compiled statement.
	SQL string

	// Params are the bind values sent with SQL.
	Params []any

	// Err is the error returned by the Executor or the row iterator.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("execute query %s: %v (sql: %s)", e.QueryID, e.Err, e.SQL)
	}
	return fmt.Sprintf("execute query: %v (sql: %s)", e.Err, e.SQL)
}

// Unwrap returns the underlying executor error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
