package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// storeFlags points a command at a fresh database and preferences file.
func storeFlags(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--db", filepath.Join(dir, "tracks.db"),
		"--prefs", filepath.Join(dir, "prefs.yaml"),
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "trackstore", cmd.Use)
	assert.Contains(t, cmd.Long, "resource locator")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"insert", "bulk-insert", "update", "delete", "query", "type", "stats", "migrate"}

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

	for _, name := range []string{"db", "prefs", "authority", "vacuum-threshold", "log-level", "metrics"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestMutationCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	updateCmd, _, err := cmd.Find([]string{"update"})
	require.NoError(t, err)
	assert.NotNil(t, updateCmd.Flags().Lookup("values"))
	assert.NotNil(t, updateCmd.Flags().Lookup("where"))
	assert.NotNil(t, updateCmd.Flags().Lookup("arg"))

	bulkCmd, _, err := cmd.Find([]string{"bulk-insert"})
	require.NoError(t, err)
	fileFlag := bulkCmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
	assert.Equal(t, "f", fileFlag.Shorthand)

	queryCmd, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)
	assert.NotNil(t, queryCmd.Flags().Lookup("columns"))
	assert.NotNil(t, queryCmd.Flags().Lookup("sort"))
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("yaml"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, "--format", "invalid", "type", "content://de.dennisguse.opentracks/tracks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigOverrideValidated(t *testing.T) {
	_, _, err := execute(t, "type", "content://de.dennisguse.opentracks/tracks", "--vacuum-threshold", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "type", "content://de.dennisguse.opentracks/tracks", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
