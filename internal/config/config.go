// Package config loads configuration for the ireal command.
//
// Configuration is loaded from a single file specified by:
//   - the --config flag, or
//   - the IREAL_CONFIG environment variable
//
// When neither is given the defaults apply. Files ending in .json or
// .jsonc are read as JSON with comments; anything else is YAML.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config path.
const EnvVar = "IREAL_CONFIG"

// Config is the configuration of the ireal command.
type Config struct {
	// Corpus configures the round-trip harness.
	Corpus CorpusConfig `yaml:"corpus" json:"corpus"`

	// Output configures how documents and frames are written.
	Output OutputConfig `yaml:"output" json:"output"`

	// Log configures the command logger.
	Log LogConfig `yaml:"log" json:"log"`
}

// CorpusConfig configures the round-trip harness.
type CorpusConfig struct {
	// Paths are files or directories scanned when roundtrip is run
	// without arguments.
	Paths []string `yaml:"paths" json:"paths"`

	// Workers bounds the number of files checked concurrently.
	// Default: number of CPUs
	Workers int `yaml:"workers" json:"workers"`

	// Extensions lists the file suffixes picked up when walking a
	// directory. A trailing .zst is always accepted on top of these.
	// Default: .irealb .irealbook .txt .html .url
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// OutputConfig configures how documents and frames are written.
type OutputConfig struct {
	// Format is the export format: json, yaml or cbor.
	// Default: json
	Format string `yaml:"format" json:"format"`

	// Compression is the frame compression: none, zstd or lz4.
	// Default: none
	Compression string `yaml:"compression" json:"compression"`

	// Digest adds a BLAKE3 digest to every frame.
	Digest bool `yaml:"digest" json:"digest"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text, json or auto (text on a terminal).
	// Default: auto
	Format string `yaml:"format" json:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Workers:    runtime.NumCPU(),
			Extensions: []string{".irealb", ".irealbook", ".txt", ".html", ".url"},
		},
		Output: OutputConfig{
			Format:      "json",
			Compression: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// ResolvePath returns the config path from the flag value, falling back
// to IREAL_CONFIG. An empty result means no file.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load returns the defaults overlaid with the file at path, or the
// defaults alone when path is empty. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile merges a single configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in corpus paths.
func (c *Config) expandVariables() {
	for i, p := range c.Corpus.Paths {
		c.Corpus.Paths[i] = expandVars(p)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Corpus.Workers < 1 {
		errs = append(errs, fmt.Errorf("corpus.workers must be at least 1, got %d", c.Corpus.Workers))
	}
	for _, ext := range c.Corpus.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("corpus.extensions: %q must start with a dot", ext))
		}
	}
	switch c.Output.Format {
	case "json", "yaml", "cbor":
	default:
		errs = append(errs, fmt.Errorf("invalid output.format: %q", c.Output.Format))
	}
	switch c.Output.Compression {
	case "none", "zstd", "lz4":
	default:
		errs = append(errs, fmt.Errorf("invalid output.compression: %q", c.Output.Compression))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log.level: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format: %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
