package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IRValue is a sealed interface representing literal values in a query.
// Only IRNull, IRString, IRInt, IRFloat and IRBool implement this.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents the NULL literal.
// Using an explicit type ensures all IRValues satisfy the sealed interface.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string literal.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer literal.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a numeric literal with a fraction or exponent.
type IRFloat float64

func (IRFloat) irValue() {}

// IRBool represents a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRInt creates an IRInt value.
func NewIRInt(n int64) IRInt {
	return IRInt(n)
}

// NewIRFloat creates an IRFloat value.
func NewIRFloat(f float64) IRFloat {
	return IRFloat(f)
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// IsNull reports whether v is the NULL literal.
func IsNull(v IRValue) bool {
	_, ok := v.(IRNull)
	return ok
}

// ParseNumber converts numeric literal text into IRInt or IRFloat.
// Text containing a fraction or exponent always yields IRFloat.
func ParseNumber(text string) (IRValue, error) {
	if !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", text, err)
		}
		return IRInt(n), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", text, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("number out of range: %q", text)
	}
	return IRFloat(f), nil
}

// String returns the DSL spelling of a literal.
func String(v IRValue) string {
	switch val := v.(type) {
	case IRNull:
		return "null"
	case IRString:
		return strconv.Quote(string(val))
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRFloat:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case IRBool:
		return strconv.FormatBool(bool(val))
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
