package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const schemaURL = "tabledict://config.schema.json"

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "engine", "dict", "shell", "logging"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "engine": {"type": "string", "pattern": "^[a-z][a-z0-9-]*$"},
    "dict": {
      "type": "object",
      "properties": {
        "main": {"type": "string"},
        "user": {"type": "string"}
      }
    },
    "shell": {
      "type": "object",
      "properties": {
        "prompt": {"type": "string"},
        "prompt_color": {"type": "string", "pattern": "^([0-9]{1,3}|#[0-9a-fA-F]{6})?$"}
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "warning", "error"]},
        "format": {"enum": ["text", "json"]},
        "output": {"enum": ["stderr", "stdout", "file", "both"]},
        "file_path": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(configSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// ValidateConfig checks c against the configuration schema and the rules
// the schema cannot express.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if err := validateSchema(c); err != nil {
		errs = append(errs, ValidationError{Field: "schema", Message: err.Error()})
	}

	if c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	if c.Dict.Main != "" && c.Dict.Main == c.Dict.User {
		errs = append(errs, ValidationError{
			Field:   "dict.user",
			Message: "user dictionary must differ from the main dictionary",
		})
	}

	if c.Dict.Main != "" {
		if info, err := os.Stat(c.Dict.Main); err == nil && info.IsDir() {
			errs = append(errs, ValidationError{
				Field:   "dict.main",
				Message: fmt.Sprintf("%s is a directory", c.Dict.Main),
			})
		}
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		errs = append(errs, *RequiredFieldError("logging.file_path"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

func validateSchema(c *Config) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so TOML and YAML sources are checked alike.
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return schema.Validate(doc)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// RequiredFieldError creates an error for a missing required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}
