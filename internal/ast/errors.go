package ast

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compile-time errors.
type ErrorCode string

const (
	// ErrCodeSyntax indicates a lexing or parsing failure.
	ErrCodeSyntax ErrorCode = "SYNTAX_ERROR"

	// ErrCodeUnknownRelation indicates a predicate naming neither a base table nor a rule.
	ErrCodeUnknownRelation ErrorCode = "UNKNOWN_RELATION"

	// ErrCodeUnboundVariable indicates a result, order, group or filter
	// variable that no predicate in the WHERE body binds.
	ErrCodeUnboundVariable ErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeDuplicateRule indicates a DEFINE or ALIAS of a name already in use.
	ErrCodeDuplicateRule ErrorCode = "DUPLICATE_RULE"

	// ErrCodeArgument indicates an argument name the target relation or rule does not have.
	ErrCodeArgument ErrorCode = "ARGUMENT_ERROR"

	// ErrCodeRecursionLimit indicates cyclic or too-deep rule expansion.
	ErrCodeRecursionLimit ErrorCode = "RECURSION_LIMIT"
)

// CompileError represents an error detected before any SQL is executed.
//
// CompileError includes structured fields for diagnostics:
//   - Code: the error category
//   - Message: human-readable description
//   - Pos: source position when known (zero otherwise)
type CompileError struct {
	Code    ErrorCode
	Message string
	Pos     Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s at %s: %s", e.Code, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates a CompileError with a formatted message.
func Errorf(code ErrorCode, pos Pos, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// CodeOf returns the ErrorCode of the first CompileError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsSyntaxError returns true if the error is a lexing or parsing error.
// Uses errors.As to handle wrapped errors.
func IsSyntaxError(err error) bool {
	return hasCode(err, ErrCodeSyntax)
}

// IsUnknownRelation returns true if the error is an unknown relation error.
func IsUnknownRelation(err error) bool {
	return hasCode(err, ErrCodeUnknownRelation)
}

// IsUnboundVariable returns true if the error is an unbound variable error.
func IsUnboundVariable(err error) bool {
	return hasCode(err, ErrCodeUnboundVariable)
}

// IsDuplicateRule returns true if the error is a duplicate rule error.
func IsDuplicateRule(err error) bool {
	return hasCode(err, ErrCodeDuplicateRule)
}

// IsArgumentError returns true if the error is an argument error.
func IsArgumentError(err error) bool {
	return hasCode(err, ErrCodeArgument)
}

// IsRecursionLimit returns true if the error is a recursion limit error.
func IsRecursionLimit(err error) bool {
	return hasCode(err, ErrCodeRecursionLimit)
}
