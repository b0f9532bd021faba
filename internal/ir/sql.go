package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// SQLLiteral renders v as an inline SQL constant.
//
// Text uses single quotes with embedded quotes doubled. Double quotes are
// reserved for identifiers: SQLite reads a double-quoted token as a column
// whenever one of that name is in scope.
// Booleans render as 1/0.
func SQLLiteral(v IRValue) (string, error) {
	switch val := v.(type) {
	case IRNull:
		return "NULL", nil
	case IRString:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'", nil
	case IRInt:
		return strconv.FormatInt(int64(val), 10), nil
	case IRFloat:
		return strconv.FormatFloat(float64(val), 'g', -1, 64), nil
	case IRBool:
		if val {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unsupported IRValue type for SQL literal: %T", v)
	}
}

// ToParam converts an IRValue to a Go native type for a SQL bind parameter.
func ToParam(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRNull:
		return nil, nil
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRFloat:
		return float64(val), nil
	case IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
