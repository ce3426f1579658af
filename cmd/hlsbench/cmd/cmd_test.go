package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME, the user config and the ledger at a temporary
// directory and makes it the working directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HLSBENCH_LEDGER_PATH", filepath.Join(dir, "ledger.db"))
	for _, key := range []string{
		"HLSBENCH_ARCHIVE", "HLSBENCH_DESCRIPTIONS", "HLSBENCH_OUTPUT_DIR", "HLSBENCH_OUTPUT_ARCHIVE",
		"HLSBENCH_JOBS", "HLSBENCH_RESOLVER", "HLSBENCH_SLASH_POLICY", "HLSBENCH_KEEP_GOING", "HLSBENCH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// When: listing its subcommands
	names := make(map[string]bool)
	for _, sc := range cmd.Commands() {
		names[sc.Name()] = true
	}

	// Then: every command is registered
	for _, want := range []string{"build", "verify", "top", "doctor", "config", "history", "watch", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootCmd_VersionFlag(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "hlsbench version")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	isolate(t)

	_, err := execute(t, "index")

	assert.Error(t, err)
}

func TestRootCmd_InvalidConfigFile(t *testing.T) {
	// Given: a config file that does not parse
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	writeFile(t, path, "input: [\n")

	// When: any config-reading command runs with it
	_, err := execute(t, "--config", path, "config", "show")

	// Then: the error is a config error with a hint
	require.Error(t, err)
	assert.Contains(t, FormatError(err), "hlsbench config show")
}

func TestRootCmd_ProfileFlags(t *testing.T) {
	// Given: CPU and heap profiles requested
	dir := isolate(t)
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	// When: running any command
	_, err := execute(t, "--profile-cpu", cpu, "--profile-mem", heap, "version", "--short")

	// Then: both profiles are written
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, heap)
}
