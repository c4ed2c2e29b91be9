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
)

// Config represents the complete symdex configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Index   IndexConfig  `yaml:"index" json:"index"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Log     LogConfig    `yaml:"log" json:"log"`
}

// PathsConfig locates the index and the symbol dumps.
type PathsConfig struct {
	// IndexDir is where the search index lives. The manifest database
	// sits beside it.
	IndexDir string `yaml:"index_dir" json:"index_dir"`

	// DumpDir is where the extraction pipeline writes
	// *.symbols.jsonl files, relative to the project root unless
	// absolute.
	DumpDir string `yaml:"dump_dir" json:"dump_dir"`
}

// SearchConfig tunes query behavior.
type SearchConfig struct {
	// MaxResults is the default result window when a caller does not
	// ask for a specific limit.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// CacheSize is the number of memoized search results. Zero
	// disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// MaxBoost caps accumulated selection boosts. Must be at least
	// 1.0 so selections can never rank a document below its base.
	MaxBoost float64 `yaml:"max_boost" json:"max_boost"`
}

// IndexConfig tunes dump ingestion.
type IndexConfig struct {
	// BatchSize is the number of symbols staged per engine batch
	// during bulk ingestion.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// Workers is the number of dump files read in parallel. Zero
	// means one worker per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// WatchConfig tunes the dump directory watcher.
type WatchConfig struct {
	// Debounce is the coalescing window for filesystem event bursts,
	// as a duration string ("500ms", "2s").
	Debounce string `yaml:"debounce" json:"debounce"`
}

// DebounceDuration parses the debounce window. Call Validate first;
// unparseable values fall back to the default here.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// LogConfig tunes structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// Path is the log file location. Empty uses the default under
	// the user's home.
	Path string `yaml:"path" json:"path"`

	// MaxSizeMB rotates the log file when it exceeds this size.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`

	// MaxFiles is the number of rotated log files kept.
	MaxFiles int `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			IndexDir: defaultIndexDir(),
			DumpDir:  "symbols",
		},
		Search: SearchConfig{
			MaxResults: 20,
			CacheSize:  256,
			MaxBoost:   2.0,
		},
		Index: IndexConfig{
			BatchSize: 1000,
			Workers:   runtime.NumCPU(),
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Log: LogConfig{
			Level:     "info",
			Path:      "",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// defaultIndexDir returns the default index location.
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp directory
		return filepath.Join(os.TempDir(), ".symdex", "index")
	}
	return filepath.Join(home, ".symdex", "index")
}

// GetUserConfigPath returns the path to the user/global configuration
// file. It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/symdex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/symdex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "symdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "symdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "symdex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user
// configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it
// exists. Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/symdex/config.yaml)
//  3. Project config (.symdex.yaml in project root)
//  4. Environment variables (SYMDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .symdex.yaml or
// .symdex.yml.
func (c *Config) loadFromFile(dir string) error {
	// Try .yaml first (takes precedence)
	yamlPath := filepath.Join(dir, ".symdex.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	// Try .yml as fallback
	ymlPath := filepath.Join(dir, ".symdex.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Merge parsed values with defaults (only non-zero values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Paths
	if other.Paths.IndexDir != "" {
		c.Paths.IndexDir = other.Paths.IndexDir
	}
	if other.Paths.DumpDir != "" {
		c.Paths.DumpDir = other.Paths.DumpDir
	}

	// Search
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	// Zero is a meaningful cache size (disabled), so merge negatives
	// as zero and treat only the absent field as "keep default".
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
		if c.Search.CacheSize < 0 {
			c.Search.CacheSize = 0
		}
	}
	if other.Search.MaxBoost != 0 {
		c.Search.MaxBoost = other.Search.MaxBoost
	}

	// Index
	if other.Index.BatchSize != 0 {
		c.Index.BatchSize = other.Index.BatchSize
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}

	// Watch
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Path != "" {
		c.Log.Path = other.Log.Path
	}
	if other.Log.MaxSizeMB != 0 {
		c.Log.MaxSizeMB = other.Log.MaxSizeMB
	}
	if other.Log.MaxFiles != 0 {
		c.Log.MaxFiles = other.Log.MaxFiles
	}
}

// applyEnvOverrides applies SYMDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SYMDEX_INDEX_DIR"); v != "" {
		c.Paths.IndexDir = v
	}
	if v := os.Getenv("SYMDEX_DUMP_DIR"); v != "" {
		c.Paths.DumpDir = v
	}
	if v := os.Getenv("SYMDEX_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	// Explicit zero disables the cache, so parse >= 0
	if v := os.Getenv("SYMDEX_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.CacheSize = n
		}
	}
	if v := os.Getenv("SYMDEX_MAX_BOOST"); v != "" {
		if b, err := parseFloat64(v); err == nil && b >= 1 {
			c.Search.MaxBoost = b
		}
	}
	if v := os.Getenv("SYMDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.BatchSize = n
		}
	}
	if v := os.Getenv("SYMDEX_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("SYMDEX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SYMDEX_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// FindProjectRoot finds the project root directory. It looks for a
// .git directory or a .symdex.yaml/.yml file by walking up the
// directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".symdex.yaml")) ||
			fileExists(filepath.Join(currentDir, ".symdex.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if
// invalid.
func (c *Config) Validate() error {
	if c.Paths.IndexDir == "" {
		return fmt.Errorf("paths.index_dir must not be empty")
	}
	if c.Paths.DumpDir == "" {
		return fmt.Errorf("paths.dump_dir must not be empty")
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Search.MaxBoost < 1 {
		return fmt.Errorf("search.max_boost must be at least 1.0, got %f", c.Search.MaxBoost)
	}

	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.Workers < 0 {
		return fmt.Errorf("index.workers must be non-negative, got %d", c.Index.Workers)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		return fmt.Errorf("watch.debounce must be a positive duration, got %q", c.Watch.Debounce)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be positive, got %d", c.Log.MaxSizeMB)
	}
	if c.Log.MaxFiles <= 0 {
		return fmt.Errorf("log.max_files must be positive, got %d", c.Log.MaxFiles)
	}

	return nil
}

// ManifestPath returns the manifest database location for the
// configured index directory.
func (c *Config) ManifestPath() string {
	return filepath.Join(filepath.Dir(c.Paths.IndexDir), "manifest.db")
}

// ResolveDumpDir resolves the dump directory against the project root
// when it is relative.
func (c *Config) ResolveDumpDir(root string) string {
	if filepath.IsAbs(c.Paths.DumpDir) {
		return c.Paths.DumpDir
	}
	return filepath.Join(root, c.Paths.DumpDir)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
