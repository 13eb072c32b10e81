// Package config provides YAML-based configuration loading with environment variable expansion.
//
// Files ending in .json, .jsonc or .hujson are accepted too. They are
// normalized to standard JSON first, which YAML then parses as a subset.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return Parse(filename, data, target)
}

// Parse decodes data into target and validates it. filename selects the
// format and is used in error messages.
func Parse[T any](filename string, data []byte, target *T) error {
	expanded := []byte(os.ExpandEnv(string(data)))

	if isJSON(filename) {
		v, err := hujson.Parse(expanded)
		if err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
		v.Standardize()
		v.Minimize()
		expanded = v.Pack()
	}

	if err := yaml.Unmarshal(expanded, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional is Load, except that a missing file leaves target as is.
// target is still validated.
func LoadOptional[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return validate(target)
	}
	return Load(filename, target)
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target)
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}

func validate[T any](target *T) error {
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

func isJSON(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".jsonc", ".hujson":
		return true
	}
	return false
}
