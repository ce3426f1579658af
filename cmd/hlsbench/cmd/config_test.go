package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/hlsbench/internal/config"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	configCmd, _, err := cmd.Find([]string{"config"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sc := range configCmd.Commands() {
		names[sc.Name()] = true
	}
	assert.True(t, names["init"])
	assert.True(t, names["show"])
	assert.True(t, names["path"])
}

func TestConfigInit_WritesDefaults(t *testing.T) {
	// Given: an empty project directory
	dir := isolate(t)

	// When: running config init
	out, err := execute(t, "config", "init")

	// Then: .hlsbench.yaml holds the defaults
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+config.ProjectFileName)
	cfg, err := config.LoadFile(filepath.Join(dir, config.ProjectFileName))
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig().Kernels.Paths, cfg.Kernels.Paths)
	assert.Equal(t, "truncate", cfg.Normalize.SlashPolicy)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, config.ProjectFileName)
	writeFile(t, path, "resolver:\n  strategy: syntax\n")

	_, err := execute(t, "config", "init")

	require.Error(t, err)
	assert.Contains(t, FormatError(err), "--force")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "resolver:\n  strategy: syntax\n", string(data))
}

func TestConfigInit_ForceKeepsBackup(t *testing.T) {
	// Given: an existing project config
	dir := isolate(t)
	path := filepath.Join(dir, config.ProjectFileName)
	writeFile(t, path, "resolver:\n  strategy: syntax\n")

	// When: forcing init
	_, err := execute(t, "config", "init", "--force")

	// Then: the old file is backed up and replaced
	require.NoError(t, err)
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	old, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "resolver:\n  strategy: syntax\n", string(old))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pattern", cfg.Resolver.Strategy)
}

func TestConfigInit_User(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "config", "init", "--user")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "xdg", "hlsbench", "config.yaml"))
	assert.NoFileExists(t, filepath.Join(dir, config.ProjectFileName))
}

func TestConfigShow_LayersProjectAndEnv(t *testing.T) {
	// Given: a project file and an environment override
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, config.ProjectFileName), "resolver:\n  strategy: syntax\nperformance:\n  jobs: 3\n")
	t.Setenv("HLSBENCH_JOBS", "7")

	// When: showing the configuration as JSON
	out, err := execute(t, "config", "show", "--format", "json")

	// Then: the project file and the environment both apply
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "syntax", cfg.Resolver.Strategy)
	assert.Equal(t, 7, cfg.Performance.Jobs)
}

func TestConfigShow_YAML(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "slash_policy: truncate")
}

func TestConfigShow_UnknownFormat(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "show", "--format", "toml")

	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "xdg", "hlsbench", "config.yaml")+"\n", out)
}

func TestConfigInit_Effective(t *testing.T) {
	// Given: an environment override
	dir := isolate(t)
	t.Setenv("HLSBENCH_RESOLVER", "syntax")

	// When: writing the effective configuration
	_, err := execute(t, "config", "init", "--effective")

	// Then: the file captures the override
	require.NoError(t, err)
	t.Setenv("HLSBENCH_RESOLVER", "")
	cfg, err := config.LoadFile(filepath.Join(dir, config.ProjectFileName))
	require.NoError(t, err)
	assert.Equal(t, "syntax", cfg.Resolver.Strategy)
}

func TestConfigInit_UserTemplate(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "config", "init", "--user")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "xdg", "hlsbench", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Machine-level settings")
}
