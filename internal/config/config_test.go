package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Engine != "go" {
		t.Errorf("expected engine go, got %s", cfg.Engine)
	}
	if cfg.Dict.Main != "" || cfg.Dict.User != "" {
		t.Errorf("default config should not name dictionaries: %+v", cfg.Dict)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path := ConfigPath()
	if path != filepath.Join("/xdg", "tabledict", "config.toml") {
		t.Errorf("unexpected config path %s", path)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Shell.Prompt != ">> " {
		t.Errorf("expected default prompt, got %q", cfg.Shell.Prompt)
	}
}

func TestLoadTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = 1
engine = "go"

[dict]
main = "/data/lilywb.main.txt"
user = "~/tabledict/user.dict"

[shell]
prompt = "dict> "

[logging]
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dict.Main != "/data/lilywb.main.txt" {
		t.Errorf("main = %s", cfg.Dict.Main)
	}
	home, _ := os.UserHomeDir()
	if cfg.Dict.User != filepath.Join(home, "tabledict", "user.dict") {
		t.Errorf("user path not expanded: %s", cfg.Dict.User)
	}
	if cfg.Shell.Prompt != "dict> " {
		t.Errorf("prompt = %q", cfg.Shell.Prompt)
	}
	if cfg.Shell.PromptColor != "135" {
		t.Errorf("unset prompt colour should keep default, got %q", cfg.Shell.PromptColor)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"config.yaml": "dict:\n  main: /m.txt\nlogging:\n  format: json\n",
		"config.json": `{"dict": {"main": "/m.txt"}, "logging": {"format": "json"}}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if cfg.Dict.Main != "/m.txt" || cfg.Logging.Format != "json" {
			t.Errorf("%s: unexpected config %+v", name, cfg)
		}
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("engine = [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TABLEDICT_MAIN_DICT", "/env/main.txt")
	t.Setenv("TABLEDICT_USER_DICT", "/env/user.dict")
	t.Setenv("TABLEDICT_LOG_LEVEL", "ERROR")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dict.Main != "/env/main.txt" || cfg.Dict.User != "/env/user.dict" {
		t.Errorf("dict overrides not applied: %+v", cfg.Dict)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("level override not applied: %s", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "schema"},
		{"bad engine", func(c *Config) { c.Engine = "" }, "schema"},
		{"bad colour", func(c *Config) { c.Shell.PromptColor = "purple" }, "schema"},
		{"future version", func(c *Config) { c.Version = Version + 1 }, "version"},
		{"same paths", func(c *Config) { c.Dict.Main = "/a"; c.Dict.User = "/a" }, "dict.user"},
		{"log file", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, v := range verrs {
				if v.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %v", tt.field, verrs)
			}
		})
	}
}

func TestValidateMainIsDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dict.Main = t.TempDir()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Errorf("expected directory error, got %v", err)
	}
}

func TestLoaderWatchReloads(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"warn\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(configPath)
	defer l.Close()
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err := l.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"debug\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.Logging.Level != "debug" {
			t.Errorf("reloaded level = %s", c.Logging.Level)
		}
		if l.Config().Logging.Level != "debug" {
			t.Errorf("loader config not updated")
		}
	case err := <-l.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoaderCloseEndsErrors(t *testing.T) {
	dir := t.TempDir()
	for _, watch := range []bool{false, true} {
		l := NewLoader(filepath.Join(dir, "config.toml"))
		if watch {
			if err := l.Watch(); err != nil {
				t.Fatalf("Watch failed: %v", err)
			}
		}

		drained := make(chan struct{})
		go func() {
			for range l.Errors() {
			}
			close(drained)
		}()

		if err := l.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("second Close failed: %v", err)
		}
		select {
		case <-drained:
		case <-time.After(5 * time.Second):
			t.Fatalf("Errors not closed (watch=%v)", watch)
		}
		l.report(os.ErrClosed)
	}
}
