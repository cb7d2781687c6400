package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// seededDB returns the path of a store seeded with the Northwind fixture.
func seededDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "northwind.db")
	_, err := execute(t, "seed", "--db", db, "testdata/fixtures/northwind.yaml")
	require.NoError(t, err)
	return db
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "odatabridge", cmd.Use)
	assert.Contains(t, cmd.Long, "ODATABRIDGE_DB")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"seed", "query", "get", "delete", "link", "normalize", "validate", "test"}

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

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("model"))
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	queryCmd, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)

	for _, name := range []string{"set", "filter", "order-by", "skip", "take", "count", "aggregate", "field"} {
		assert.NotNil(t, queryCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "f", queryCmd.Flags().Lookup("filter").Shorthand)
	assert.Equal(t, "-1", queryCmd.Flags().Lookup("take").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "link", "--format", "xml", "http://localhost/odata/Orders(1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEnvironmentConfig(t *testing.T) {
	db := seededDB(t)

	t.Setenv("ODATABRIDGE_DB", db)
	t.Setenv("ODATABRIDGE_FORMAT", "json")

	out, err := execute(t, "query", "--set", "Orders", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"value":3`)
}

func TestFlagOverridesEnvironment(t *testing.T) {
	db := seededDB(t)

	t.Setenv("ODATABRIDGE_DB", db)
	t.Setenv("ODATABRIDGE_FORMAT", "json")

	out, err := execute(t, "query", "--set", "Orders", "--count", "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
