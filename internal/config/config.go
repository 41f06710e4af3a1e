// Package config handles configuration loading and validation for tabledict.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the shell configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Engine names the dictionary engine ("go", or "libime" when built with it).
	Engine string `toml:"engine" json:"engine" yaml:"engine"`

	// Dict selects the dictionaries to load.
	Dict DictConfig `toml:"dict" json:"dict" yaml:"dict"`

	// Shell configures the interactive prompt.
	Shell ShellConfig `toml:"shell" json:"shell" yaml:"shell"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// DictConfig holds dictionary paths. Empty paths are not loaded.
type DictConfig struct {
	// Main is the read-only main dictionary.
	Main string `toml:"main" json:"main" yaml:"main"`

	// User is the user dictionary overlay; save writes back here.
	User string `toml:"user" json:"user" yaml:"user"`
}

// ShellConfig holds prompt settings.
type ShellConfig struct {
	Prompt string `toml:"prompt" json:"prompt" yaml:"prompt"`

	// PromptColor is an ANSI 256 colour number; empty disables colour.
	PromptColor string `toml:"prompt_color" json:"prompt_color" yaml:"prompt_color"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stderr, file, or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is used when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Engine:  "go",
		Shell: ShellConfig{
			Prompt:      ">> ",
			PromptColor: "135",
		},
		Logging: LoggingConfig{
			Level:    "warn",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(StateDir(), "tabledict.log"),
		},
	}
}

// ConfigDir returns the platform configuration directory for tabledict.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tabledict")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "tabledict")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tabledict")
}

// StateDir returns the directory for logs.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "tabledict")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "tabledict")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies TABLEDICT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TABLEDICT_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv("TABLEDICT_MAIN_DICT"); v != "" {
		c.Dict.Main = v
	}
	if v := os.Getenv("TABLEDICT_USER_DICT"); v != "" {
		c.Dict.User = v
	}
	if v := os.Getenv("TABLEDICT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// ExpandPaths resolves a leading ~/ in dictionary and log paths.
func (c *Config) ExpandPaths() {
	c.Dict.Main = expandPath(c.Dict.Main)
	c.Dict.User = expandPath(c.Dict.User)
	c.Logging.FilePath = expandPath(c.Logging.FilePath)
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

func decodeJSON(data []byte, cfg *Config) error {
	return json.Unmarshal(data, cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return nil
}
