package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/hlsbench/internal/kernel"
)

// ProjectFileName is the per-project configuration file.
const ProjectFileName = ".hlsbench.yaml"

// Slash policies accepted by normalize.slash_policy.
const (
	SlashPolicyTruncate   = "truncate"
	SlashPolicyStripLines = "strip-lines"
)

// Resolver strategies accepted by resolver.strategy.
const (
	ResolverPattern = "pattern"
	ResolverSyntax  = "syntax"
)

// Ledger drivers accepted by ledger.driver.
const (
	LedgerDriverSQLite  = "sqlite"
	LedgerDriverSQLite3 = "sqlite3"
)

// Config represents the complete hlsbench configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Input       InputConfig       `yaml:"input" json:"input"`
	Output      OutputConfig      `yaml:"output" json:"output"`
	Kernels     KernelsConfig     `yaml:"kernels" json:"kernels"`
	Normalize   NormalizeConfig   `yaml:"normalize" json:"normalize"`
	Resolver    ResolverConfig    `yaml:"resolver" json:"resolver"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Run         RunConfig         `yaml:"run" json:"run"`
	Tools       ToolsConfig       `yaml:"tools" json:"tools"`
	Ledger      LedgerConfig      `yaml:"ledger" json:"ledger"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Watch       WatchConfig       `yaml:"watch" json:"watch"`
}

// InputConfig locates the benchmark archive and the description document.
type InputConfig struct {
	Archive      string `yaml:"archive" json:"archive"`
	Descriptions string `yaml:"descriptions" json:"descriptions"`
	// RootFolder is the single top-level folder inside the archive.
	RootFolder string `yaml:"root_folder" json:"root_folder"`
}

// OutputConfig names the corpus directory and the packaged archive.
type OutputConfig struct {
	Dir     string `yaml:"dir" json:"dir"`
	Archive string `yaml:"archive" json:"archive"`
}

// KernelsConfig lists the kernel directories relative to the archive root.
type KernelsConfig struct {
	Paths []string `yaml:"paths" json:"paths"`
}

// NormalizeConfig configures header cleanup.
type NormalizeConfig struct {
	// SlashPolicy is "truncate" (drop the divider and everything after it)
	// or "strip-lines" (drop only divider lines).
	SlashPolicy string `yaml:"slash_policy" json:"slash_policy"`
}

// ResolverConfig selects the top-function strategy.
type ResolverConfig struct {
	Strategy string `yaml:"strategy" json:"strategy"`
}

// PerformanceConfig configures the worker pool.
type PerformanceConfig struct {
	// Jobs is the number of kernels processed in parallel. 0 means NumCPU.
	Jobs int `yaml:"jobs" json:"jobs"`
}

// RunConfig configures batch failure handling.
type RunConfig struct {
	// KeepGoing packages successful kernels even when some fail.
	KeepGoing bool `yaml:"keep_going" json:"keep_going"`
}

// ToolsConfig lists external tools that must be on PATH before a build.
type ToolsConfig struct {
	Required []string `yaml:"required" json:"required"`
}

// LedgerConfig configures the run history database.
type LedgerConfig struct {
	Path   string `yaml:"path" json:"path"`
	Driver string `yaml:"driver" json:"driver"`
}

// LoggingConfig configures log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Input: InputConfig{
			Archive:      "./MachSuite-master-6236e59.zip",
			Descriptions: "./kernel_descriptions.md",
			RootFolder:   "MachSuite-master",
		},
		Output: OutputConfig{
			Dir:     "./hls-machsuite/",
			Archive: "./hls-machsuite.tar.gz",
		},
		Kernels: KernelsConfig{
			Paths: append([]string(nil), kernel.DefaultPaths...),
		},
		Normalize: NormalizeConfig{
			SlashPolicy: SlashPolicyTruncate,
		},
		Resolver: ResolverConfig{
			Strategy: ResolverPattern,
		},
		Performance: PerformanceConfig{
			Jobs: runtime.NumCPU(),
		},
		Tools: ToolsConfig{
			Required: []string{},
		},
		Ledger: LedgerConfig{
			Path:   defaultLedgerPath(),
			Driver: LedgerDriverSQLite,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// defaultLedgerPath returns ~/.hlsbench/ledger.db.
func defaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".hlsbench", "ledger.db")
	}
	return filepath.Join(home, ".hlsbench", "ledger.db")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory layout:
//   - $XDG_CONFIG_HOME/hlsbench/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/hlsbench/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hlsbench", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "hlsbench", "config.yaml")
	}
	return filepath.Join(home, ".config", "hlsbench", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parseYAML(configPath, &parsed); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &parsed, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/hlsbench/config.yaml)
//  3. Project config (.hlsbench.yaml in dir)
//  4. Environment variables (HLSBENCH_*)
func Load(dir string) (*Config, error) {
	return load(func(c *Config) error { return c.loadFromDir(dir) })
}

// LoadFile is Load with an explicit project config file instead of
// dir/.hlsbench.yaml. The file must exist.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return load(func(c *Config) error { return c.loadYAML(path) })
}

func load(project func(*Config) error) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := project(cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromDir loads .hlsbench.yaml or .hlsbench.yml if present.
func (c *Config) loadFromDir(dir string) error {
	yamlPath := filepath.Join(dir, ProjectFileName)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".hlsbench.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	var parsed Config
	if err := parseYAML(path, &parsed); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

func parseYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Input.Archive != "" {
		c.Input.Archive = other.Input.Archive
	}
	if other.Input.Descriptions != "" {
		c.Input.Descriptions = other.Input.Descriptions
	}
	if other.Input.RootFolder != "" {
		c.Input.RootFolder = other.Input.RootFolder
	}

	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.Archive != "" {
		c.Output.Archive = other.Output.Archive
	}

	// Kernel paths replace the defaults; the list is ordered
	if len(other.Kernels.Paths) > 0 {
		c.Kernels.Paths = other.Kernels.Paths
	}

	if other.Normalize.SlashPolicy != "" {
		c.Normalize.SlashPolicy = other.Normalize.SlashPolicy
	}
	if other.Resolver.Strategy != "" {
		c.Resolver.Strategy = other.Resolver.Strategy
	}
	if other.Performance.Jobs != 0 {
		c.Performance.Jobs = other.Performance.Jobs
	}
	// keep_going is opt-in, so only true is meaningful in a file
	if other.Run.KeepGoing {
		c.Run.KeepGoing = true
	}
	if len(other.Tools.Required) > 0 {
		c.Tools.Required = other.Tools.Required
	}

	if other.Ledger.Path != "" {
		c.Ledger.Path = other.Ledger.Path
	}
	if other.Ledger.Driver != "" {
		c.Ledger.Driver = other.Ledger.Driver
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

// applyEnvOverrides applies HLSBENCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HLSBENCH_ARCHIVE"); v != "" {
		c.Input.Archive = v
	}
	if v := os.Getenv("HLSBENCH_DESCRIPTIONS"); v != "" {
		c.Input.Descriptions = v
	}
	if v := os.Getenv("HLSBENCH_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("HLSBENCH_OUTPUT_ARCHIVE"); v != "" {
		c.Output.Archive = v
	}
	if v := os.Getenv("HLSBENCH_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Performance.Jobs = n
		}
	}
	if v := os.Getenv("HLSBENCH_RESOLVER"); v != "" {
		c.Resolver.Strategy = v
	}
	if v := os.Getenv("HLSBENCH_SLASH_POLICY"); v != "" {
		c.Normalize.SlashPolicy = v
	}
	if v := os.Getenv("HLSBENCH_KEEP_GOING"); v != "" {
		c.Run.KeepGoing = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("HLSBENCH_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("HLSBENCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch c.Normalize.SlashPolicy {
	case SlashPolicyTruncate, SlashPolicyStripLines:
	default:
		return fmt.Errorf("normalize.slash_policy must be '%s' or '%s', got %q",
			SlashPolicyTruncate, SlashPolicyStripLines, c.Normalize.SlashPolicy)
	}

	switch c.Resolver.Strategy {
	case ResolverPattern, ResolverSyntax:
	default:
		return fmt.Errorf("resolver.strategy must be '%s' or '%s', got %q",
			ResolverPattern, ResolverSyntax, c.Resolver.Strategy)
	}

	if c.Performance.Jobs < 0 {
		return fmt.Errorf("performance.jobs must be non-negative, got %d", c.Performance.Jobs)
	}

	if len(c.Kernels.Paths) == 0 {
		return fmt.Errorf("kernels.paths must not be empty")
	}
	for _, p := range c.Kernels.Paths {
		if p == "" || filepath.IsAbs(p) || strings.HasPrefix(filepath.Clean(p), "..") {
			return fmt.Errorf("kernels.paths entry %q must be a relative path inside the archive", p)
		}
	}

	switch c.Ledger.Driver {
	case LedgerDriverSQLite, LedgerDriverSQLite3:
	default:
		return fmt.Errorf("ledger.driver must be '%s' or '%s', got %q",
			LedgerDriverSQLite, LedgerDriverSQLite3, c.Ledger.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	if _, err := c.DebounceDuration(); err != nil {
		return err
	}

	return nil
}

// DebounceDuration parses watch.debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce must be a duration, got %q: %w", c.Watch.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("watch.debounce must be non-negative, got %s", d)
	}
	return d, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for .hlsbench.yaml or a
// .git directory. Falls back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ProjectFileName)) ||
			fileExists(filepath.Join(currentDir, ".hlsbench.yml")) {
			return currentDir, nil
		}
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
