// Package config provides configuration management for the ralph controller.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateDirName is the per-workspace state directory.
const StateDirName = ".ralph"

// Config represents the controller configuration for one workspace.
type Config struct {
	Task    TaskConfig    `yaml:"task"`
	Budget  BudgetConfig  `yaml:"budget"`
	Thrash  ThrashConfig  `yaml:"thrash"`
	Test    TestConfig    `yaml:"test"`
	Handoff HandoffConfig `yaml:"handoff"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

// TaskConfig locates the task file.
type TaskConfig struct {
	File string `yaml:"file"`
}

// BudgetConfig contains context-budget settings.
type BudgetConfig struct {
	CapacityTokens   int     `yaml:"capacity_tokens"`
	WarnFraction     float64 `yaml:"warn_fraction"`
	CriticalFraction float64 `yaml:"critical_fraction"`
}

// ThrashConfig contains edit-thrash detection settings.
type ThrashConfig struct {
	RepeatThreshold int `yaml:"repeat_threshold"`
	GutterThreshold int `yaml:"gutter_threshold"`
}

// TestConfig contains test-command execution settings.
type TestConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxOutputLines int `yaml:"max_output_lines"`
}

// HandoffConfig contains the optional external escalation target. Handoff is
// attempted only when Token is present.
type HandoffConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// APIConfig contains status API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	APIKey  string `yaml:"api_key"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	Output     []string `yaml:"output"`
	TimeFormat string   `yaml:"time_format"`
	MaxSizeMB  int      `yaml:"max_size_mb"`
	MaxBackups int      `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Task: TaskConfig{
			File: "TASK.md",
		},
		Budget: BudgetConfig{
			CapacityTokens:   80_000,
			WarnFraction:     0.80,
			CriticalFraction: 0.95,
		},
		Thrash: ThrashConfig{
			RepeatThreshold: 5,
			GutterThreshold: 3,
		},
		Test: TestConfig{
			TimeoutSeconds: 300,
			MaxOutputLines: 20,
		},
		Handoff: HandoffConfig{
			Token: os.Getenv("RALPH_HANDOFF_TOKEN"),
		},
		API: APIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8933,
			APIKey:  "", // Empty = no auth for localhost
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"file"},
		},
	}
}

// StateDir returns the state directory for a workspace root.
func StateDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, StateDirName)
}

// ConfigPath returns the config file path for a workspace root.
func ConfigPath(workspaceRoot string) string {
	return filepath.Join(StateDir(workspaceRoot), "config.yaml")
}

// Load loads configuration for a workspace, merging the config file (if any)
// over defaults. Environment variables inside the file are expanded.
func Load(workspaceRoot string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath(workspaceRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the workspace's config file.
func (c *Config) Save(workspaceRoot string) error {
	path := ConfigPath(workspaceRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// TaskPath returns the absolute task file path for a workspace root.
func (c *Config) TaskPath(workspaceRoot string) string {
	if filepath.IsAbs(c.Task.File) {
		return c.Task.File
	}
	return filepath.Join(workspaceRoot, c.Task.File)
}

// LogPath returns the controller log file path for a workspace root.
func (c *Config) LogPath(workspaceRoot string) string {
	return filepath.Join(StateDir(workspaceRoot), "logs", "ralph.log")
}

// Address returns the host:port for the status API.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
