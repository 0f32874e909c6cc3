package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for dbgcov
type Config struct {
	// Sources selects the C files a directory argument expands to
	Sources SourcesConfig `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Output controls how region records are written
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`

	// Frontend controls parsing
	Frontend FrontendConfig `json:"frontend,omitempty" yaml:"frontend,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty" yaml:"analysis,omitempty"`

	// Audit contains region audit rule configuration
	Audit AuditConfig `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// SourcesConfig lists glob patterns, relative to the directory being
// expanded. ** matches any number of directories.
type SourcesConfig struct {
	Files   []string `json:"files,omitempty" yaml:"files,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// OutputConfig controls the region stream
type OutputConfig struct {
	// Format is "tsv" (default) or "jsonl"
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Validate checks every record against the region contract before writing
	Validate bool `json:"validate,omitempty" yaml:"validate,omitempty"`
}

// FrontendConfig controls the C frontend
type FrontendConfig struct {
	// Strict fails a file that has syntax errors
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`

	// HonorLineMarkers applies #line directives and preprocessor line markers
	HonorLineMarkers *bool `json:"honorLineMarkers,omitempty" yaml:"honorLineMarkers,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// WorkingDir overrides the directory unit names are made relative to
	WorkingDir string `json:"workingDir,omitempty" yaml:"workingDir,omitempty"`

	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty" yaml:"maxParallelFiles,omitempty"`

	// Cache controls reuse of per-file regions between runs
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// CacheConfig controls the region cache
type CacheConfig struct {
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Dir is relative to the working directory unless absolute
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// AuditConfig contains audit rule configuration
type AuditConfig struct {
	// Rules maps rule names to severity: "off", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" yaml:"rules,omitempty"`

	// PolicyDir adds .rego files from a directory to the built-in rules
	PolicyDir string `json:"policyDir,omitempty" yaml:"policyDir,omitempty"`
}

var defaultSources = []string{"*.c", "**/*.c", "*.i", "**/*.i"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Files:   append([]string(nil), defaultSources...),
			Exclude: []string{},
		},
		Output: OutputConfig{
			Format: "tsv",
		},
		Frontend: FrontendConfig{
			HonorLineMarkers: boolPtr(true),
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
		},
		Audit: AuditConfig{
			Rules: map[string]string{},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// configNames are tried in each search directory, in order
var configNames = []string{"dbgcov.json", ".dbgcov.json", "dbgcov.yaml", ".dbgcov.yaml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./dbgcov.json, ./.dbgcov.json, ./dbgcov.yaml, ./.dbgcov.yaml
//  2. the same names in <rootPath> (if it is a directory other than cwd)
//  3. ~/.config/dbgcov/config.json, ~/.config/dbgcov/config.yaml
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range configNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range configNames {
				searchPaths = append(searchPaths, filepath.Join(absRoot, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "dbgcov", "config.json"),
			filepath.Join(home, ".config", "dbgcov", "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file. Files ending in .yaml
// or .yml are read as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Sources.Files) == 0 {
		c.Sources.Files = append([]string(nil), defaultSources...)
	}
	if c.Output.Format == "" {
		c.Output.Format = "tsv"
	}
	if c.Frontend.HonorLineMarkers == nil {
		c.Frontend.HonorLineMarkers = boolPtr(true)
	}
	if c.Audit.Rules == nil {
		c.Audit.Rules = make(map[string]string)
	}
}

// Save writes the configuration to a file, as YAML or JSON by extension
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// LineMarkersHonored reports whether line markers remap positions
func (c *Config) LineMarkersHonored() bool {
	return c.Frontend.HonorLineMarkers == nil || *c.Frontend.HonorLineMarkers
}

// CacheEnabled reports whether per-file regions are cached
func (c *Config) CacheEnabled() bool {
	return c.Analysis.Cache.Enabled != nil && *c.Analysis.Cache.Enabled
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Audit.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Audit.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}
