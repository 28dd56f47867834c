// Package config loads the optional .practracker.yaml file that tailors a
// scan to a particular source tree.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-tree configuration file, looked up at the scan
// root.
const ConfigFileName = ".practracker.yaml"

// DefaultExceptionsFile is the ledger location under the scan root unless
// overridden by config or flag.
const DefaultExceptionsFile = "exceptions.txt"

// Config tailors a scan to one source tree. Zero-valued threshold fields
// fall back to the built-in policy values.
type Config struct {
	// Extensions selects which files are scanned.
	Extensions []string `yaml:"extensions"`

	// ExcludePaths lists directory prefixes or file suffixes to skip.
	ExcludePaths []string `yaml:"exclude_paths"`

	// Exceptions overrides the ledger file location, relative to the
	// scan root unless absolute.
	Exceptions string `yaml:"exceptions,omitempty"`

	// Threshold overrides. 0 means "use the built-in default".
	MaxFileLength     int `yaml:"max_file_length,omitempty"`
	MaxFunctionLength int `yaml:"max_function_length,omitempty"`
	MaxIncludeCount   int `yaml:"max_include_count,omitempty"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Extensions: []string{".c", ".h"},
		ExcludePaths: []string{
			".git/",
			"ext/",
			"trunnel/",
		},
		Exceptions: DefaultExceptionsFile,
	}
}

// LoadConfig reads .practracker.yaml from root, returning defaults when the
// file is absent. A file that exists but fails to parse is a fatal error.
func LoadConfig(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	return config, nil
}

// ExceptionsPath resolves the ledger location against the scan root.
func (c *Config) ExceptionsPath(root string) string {
	p := c.Exceptions
	if p == "" {
		p = DefaultExceptionsFile
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// SaveDefaultConfig writes the default configuration to path, for
// bootstrapping a new tree.
func SaveDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
