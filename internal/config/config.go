// Package config loads and validates vibeforge configuration from YAML with
// environment variable overrides. Components receive the parsed values by
// explicit injection; nothing in the library reads config ambiently.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all vibeforge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Gemini collaborator settings
	Gemini GeminiConfig `yaml:"gemini"`

	// Testing and correction limits
	Testing TestingConfig `yaml:"testing"`

	// Filesystem paths
	Paths PathsConfig `yaml:"paths"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GeminiConfig configures the generative collaborator.
type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// TestingConfig bounds sandboxed execution and the correction loop.
type TestingConfig struct {
	// MaxExecutionSeconds is the wall-clock budget per sandbox run.
	MaxExecutionSeconds int `yaml:"max_execution_seconds"`

	// MaxCorrectionAttempts is the hard ceiling on attempts per session.
	MaxCorrectionAttempts int `yaml:"max_correction_attempts"`

	// MaxOutputBytes bounds captured stdout/stderr per stream.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	// PythonBinary is the interpreter launched inside the sandbox.
	PythonBinary string `yaml:"python_binary"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// WorkDir is the root under which sandbox run directories are created.
	WorkDir string `yaml:"work_dir"`

	// LogsDir holds category log files when debug logging is enabled.
	LogsDir string `yaml:"logs_dir"`
}

// LoggingConfig configures the category logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "vibeforge",
		Version: "1.0.0",

		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			MaxTokens:   8192,
			Timeout:     "120s",
		},

		Testing: TestingConfig{
			MaxExecutionSeconds:   10,
			MaxCorrectionAttempts: 5,
			MaxOutputBytes:        1024 * 1024,
			PythonBinary:          "python3",
		},

		Paths: PathsConfig{
			WorkDir: filepath.Join(os.TempDir(), "vibeforge"),
			LogsDir: filepath.Join(os.TempDir(), "vibeforge", "logs"),
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if model := os.Getenv("VIBEFORGE_MODEL"); model != "" {
		c.Gemini.Model = model
	}
	if dir := os.Getenv("VIBEFORGE_WORK_DIR"); dir != "" {
		c.Paths.WorkDir = dir
	}
	if v := os.Getenv("VIBEFORGE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Testing.MaxCorrectionAttempts = n
		}
	}
	if v := os.Getenv("VIBEFORGE_EXEC_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Testing.MaxExecutionSeconds = n
		}
	}
	if v := os.Getenv("VIBEFORGE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// Validate checks the values a session setup depends on.
func (c *Config) Validate() error {
	if c.Testing.MaxCorrectionAttempts <= 0 {
		return fmt.Errorf("max_correction_attempts must be greater than 0")
	}
	if c.Testing.MaxExecutionSeconds <= 0 {
		return fmt.Errorf("max_execution_seconds must be greater than 0")
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini temperature must be between 0 and 2")
	}
	if c.Paths.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}
	if err := os.MkdirAll(c.Paths.WorkDir, 0755); err != nil {
		return fmt.Errorf("cannot create work_dir %q: %w", c.Paths.WorkDir, err)
	}
	return nil
}

// ExecutionTimeout returns the per-run wall-clock budget as a duration.
func (c *Config) ExecutionTimeout() time.Duration {
	return time.Duration(c.Testing.MaxExecutionSeconds) * time.Second
}

// GeminiTimeout returns the collaborator call timeout as a duration.
func (c *Config) GeminiTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gemini.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}
