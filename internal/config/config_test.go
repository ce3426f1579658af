package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/hlsbench/internal/kernel"
)

// isolate points the user config lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeUserConfig(t *testing.T, xdg, content string) {
	t.Helper()
	dir := filepath.Join(xdg, "hlsbench")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: the original pipeline's defaults are applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "./MachSuite-master-6236e59.zip", cfg.Input.Archive)
	assert.Equal(t, "./kernel_descriptions.md", cfg.Input.Descriptions)
	assert.Equal(t, "MachSuite-master", cfg.Input.RootFolder)
	assert.Equal(t, "./hls-machsuite/", cfg.Output.Dir)
	assert.Equal(t, "./hls-machsuite.tar.gz", cfg.Output.Archive)
	assert.Equal(t, kernel.DefaultPaths, cfg.Kernels.Paths)
	assert.Equal(t, SlashPolicyTruncate, cfg.Normalize.SlashPolicy)
	assert.Equal(t, ResolverPattern, cfg.Resolver.Strategy)
	assert.Equal(t, runtime.NumCPU(), cfg.Performance.Jobs)
	assert.False(t, cfg.Run.KeepGoing)
	assert.Empty(t, cfg.Tools.Required)
	assert.Equal(t, LedgerDriverSQLite, cfg.Ledger.Driver)
	assert.Contains(t, cfg.Ledger.Path, ".hlsbench")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "500ms", cfg.Watch.Debounce)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_KernelPathsAreACopy(t *testing.T) {
	cfg := NewConfig()
	cfg.Kernels.Paths[0] = "mutated"

	assert.Equal(t, "aes/aes", kernel.DefaultPaths[0])
}

// =============================================================================
// Project file loading
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Input, cfg.Input)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	// Given: a directory with .hlsbench.yaml
	isolate(t)
	tmpDir := t.TempDir()
	configContent := `
version: 1
input:
  archive: /data/MachSuite.tar.gz
output:
  dir: /out/corpus
kernels:
  paths:
    - aes/aes
    - sort/merge
normalize:
  slash_policy: strip-lines
resolver:
  strategy: syntax
performance:
  jobs: 3
run:
  keep_going: true
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectFileName), []byte(configContent), 0o644))

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: all overrides are applied and untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, "/data/MachSuite.tar.gz", cfg.Input.Archive)
	assert.Equal(t, "./kernel_descriptions.md", cfg.Input.Descriptions)
	assert.Equal(t, "/out/corpus", cfg.Output.Dir)
	assert.Equal(t, []string{"aes/aes", "sort/merge"}, cfg.Kernels.Paths)
	assert.Equal(t, SlashPolicyStripLines, cfg.Normalize.SlashPolicy)
	assert.Equal(t, ResolverSyntax, cfg.Resolver.Strategy)
	assert.Equal(t, 3, cfg.Performance.Jobs)
	assert.True(t, cfg.Run.KeepGoing)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".hlsbench.yml"),
		[]byte("resolver:\n  strategy: syntax\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, ResolverSyntax, cfg.Resolver.Strategy)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectFileName),
		[]byte("input: [broken"), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoad_InvalidValues_FailValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown slash policy", "normalize:\n  slash_policy: keep\n", "slash_policy"},
		{"unknown resolver", "resolver:\n  strategy: llm\n", "resolver.strategy"},
		{"negative jobs", "performance:\n  jobs: -2\n", "performance.jobs"},
		{"escaping kernel path", "kernels:\n  paths: [\"../etc\"]\n", "kernels.paths"},
		{"absolute kernel path", "kernels:\n  paths: [\"/abs\"]\n", "kernels.paths"},
		{"unknown driver", "ledger:\n  driver: postgres\n", "ledger.driver"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
		{"bad debounce", "watch:\n  debounce: soon\n", "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			tmpDir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectFileName), []byte(tt.content), 0o644))

			_, err := Load(tmpDir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("performance:\n  jobs: 7\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Performance.Jobs)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// Layering
// =============================================================================

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	xdg := isolate(t)

	assert.Equal(t, filepath.Join(xdg, "hlsbench", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())

	writeUserConfig(t, xdg, "version: 1\n")
	assert.True(t, UserConfigExists())
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: both user and project configs exist
	xdg := isolate(t)
	projectDir := t.TempDir()
	writeUserConfig(t, xdg, "resolver:\n  strategy: syntax\nperformance:\n  jobs: 2\n")
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ProjectFileName),
		[]byte("performance:\n  jobs: 6\n"), 0o644))

	// When: loading configuration
	cfg, err := Load(projectDir)

	// Then: project wins where set, user config fills the rest
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Performance.Jobs)
	assert.Equal(t, ResolverSyntax, cfg.Resolver.Strategy)
}

func TestLoad_EnvVarOverridesEverything(t *testing.T) {
	// Given: all three config sources exist
	xdg := isolate(t)
	projectDir := t.TempDir()
	writeUserConfig(t, xdg, "performance:\n  jobs: 2\n")
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ProjectFileName),
		[]byte("performance:\n  jobs: 6\n"), 0o644))
	t.Setenv("HLSBENCH_JOBS", "9")
	t.Setenv("HLSBENCH_SLASH_POLICY", "strip-lines")
	t.Setenv("HLSBENCH_KEEP_GOING", "1")
	t.Setenv("HLSBENCH_LOG_LEVEL", "debug")

	// When: loading configuration
	cfg, err := Load(projectDir)

	// Then: env vars have highest precedence
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Performance.Jobs)
	assert.Equal(t, SlashPolicyStripLines, cfg.Normalize.SlashPolicy)
	assert.True(t, cfg.Run.KeepGoing)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvVarInvalidJobs_Ignored(t *testing.T) {
	isolate(t)
	t.Setenv("HLSBENCH_JOBS", "many")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), cfg.Performance.Jobs)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	xdg := isolate(t)
	writeUserConfig(t, xdg, "input:\n  archive: [invalid yaml\n")

	cfg, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}

// =============================================================================
// Helpers
// =============================================================================

func TestDebounceDuration(t *testing.T) {
	cfg := NewConfig()

	d, err := cfg.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	cfg.Watch.Debounce = "-1s"
	_, err = cfg.DebounceDuration()
	assert.Error(t, err)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	// Given: a customized config written to disk
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Resolver.Strategy = ResolverSyntax
	cfg.Kernels.Paths = []string{"gemm/ncubed"}
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectFileName)))

	// When: loading it back
	loaded, err := Load(dir)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, ResolverSyntax, loaded.Resolver.Strategy)
	assert.Equal(t, []string{"gemm/ncubed"}, loaded.Kernels.Paths)
}

func TestFindProjectRoot(t *testing.T) {
	// Given: a project with a config file and a nested directory
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName), []byte("version: 1\n"), 0o644))

	// When: searching from the nested directory
	found, err := FindProjectRoot(nested)

	// Then: the config location is returned
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestBackupFile_KeepsNewest(t *testing.T) {
	// Given: an existing config file
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	// When: backing it up more times than MaxBackups
	for i := 0; i < MaxBackups+2; i++ {
		backup, err := BackupFile(path)
		require.NoError(t, err)
		assert.FileExists(t, backup)
		time.Sleep(2 * time.Millisecond)
	}

	// Then: only MaxBackups remain
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}

func TestBackupFile_MissingFile(t *testing.T) {
	backup, err := BackupFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Empty(t, backup)
}
