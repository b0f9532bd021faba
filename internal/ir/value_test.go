package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValue_SealedInterface(t *testing.T) {
	values := []IRValue{
		IRNull{},
		NewIRString("Rhaenyra"),
		NewIRInt(17),
		NewIRFloat(1.5),
		NewIRBool(true),
	}

	for _, v := range values {
		switch v.(type) {
		case IRNull, IRString, IRInt, IRFloat, IRBool:
			// Expected
		default:
			t.Fatalf("unexpected IRValue type %T", v)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		text string
		want IRValue
	}{
		{"0", IRInt(0)},
		{"17", IRInt(17)},
		{"-20", IRInt(-20)},
		{"1.5", IRFloat(1.5)},
		{"2e3", IRFloat(2000)},
		{"-0.25", IRFloat(-0.25)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseNumber(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber_Invalid(t *testing.T) {
	for _, text := range []string{"", "abc", "99999999999999999999", "1e999"} {
		_, err := ParseNumber(text)
		assert.Error(t, err, "text %q", text)
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(IRNull{}))
	assert.False(t, IsNull(IRString("null")))
	assert.False(t, IsNull(IRInt(0)))
}

func TestString(t *testing.T) {
	assert.Equal(t, "null", String(IRNull{}))
	assert.Equal(t, `"Mother"`, String(IRString("Mother")))
	assert.Equal(t, "42", String(IRInt(42)))
	assert.Equal(t, "0.5", String(IRFloat(0.5)))
	assert.Equal(t, "false", String(IRBool(false)))
}
