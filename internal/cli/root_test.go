package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "drolta", cmd.Use)
	assert.Contains(t, cmd.Long, "compiled to SQL")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"query", "compile", "check", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	queryCmd, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)

	for _, name := range []string{"db", "script", "schema", "bind-params", "max-depth"} {
		assert.NotNil(t, queryCmd.Flags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "false", queryCmd.Flags().Lookup("bind-params").DefValue)
	assert.Equal(t, "0", queryCmd.Flags().Lookup("max-depth").DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.NotNil(t, compileCmd.Flags().Lookup("db"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	for _, name := range []string{"update", "filter", "golden"} {
		assert.NotNil(t, testCmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "compile", "FIND ?x WHERE t(a=?x);")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
