package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLLiteral(t *testing.T) {
	tests := []struct {
		name string
		v    IRValue
		want string
	}{
		{"null", IRNull{}, "NULL"},
		{"string", IRString("Mother"), "'Mother'"},
		{"string with quote", IRString("it's"), "'it''s'"},
		{"string with double quote", IRString(`say "hi"`), `'say "hi"'`},
		{"int", IRInt(85), "85"},
		{"negative int", IRInt(-20), "-20"},
		{"float", IRFloat(0.75), "0.75"},
		{"true", IRBool(true), "1"},
		{"false", IRBool(false), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SQLLiteral(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLLiteral_NeverDoubleQuoted(t *testing.T) {
	// A string literal must never use identifier quoting.
	got, err := SQLLiteral(IRString("total"))
	require.NoError(t, err)
	assert.NotContains(t, got, `"`)
}

func TestToParam(t *testing.T) {
	tests := []struct {
		name string
		v    IRValue
		want any
	}{
		{"null", IRNull{}, nil},
		{"string", IRString("F"), "F"},
		{"int", IRInt(1), int64(1)},
		{"float", IRFloat(1.25), 1.25},
		{"bool", IRBool(true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToParam(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
