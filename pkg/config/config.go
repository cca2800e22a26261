package config

import (
	"os"
	"strings"

	"github.com/scottdavis/inferpipe/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is a parsed pipeline configuration file. Files are YAML; JSON
// files parse as well since JSON is a YAML subset.
type Config struct {
	path string
	data map[string]any
}

// FromFile reads and parses a configuration file. Parsing is eager: a
// missing or malformed file fails here rather than at first access.
func FromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read configuration file"),
			errors.Fields{"path": path},
		)
	}

	data := make(map[string]any)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse configuration file"),
			errors.Fields{"path": path},
		)
	}

	return &Config{path: path, data: data}, nil
}

// Path returns the file the configuration was parsed from.
func (c *Config) Path() string {
	return c.path
}

// Get resolves a dotted key path ("model.type") against the parsed
// tree. The second return is false when any segment is absent.
func (c *Config) Get(key string) (any, bool) {
	var current any = c.data
	for _, segment := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the string value at key, or false if absent or not
// a string.
func (c *Config) GetString(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns the integer value at key, or false if absent or not an
// integer.
func (c *Config) GetInt(key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// GetBool returns the boolean value at key, or false if absent or not a
// boolean.
func (c *Config) GetBool(key string) (bool, bool) {
	v, ok := c.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
