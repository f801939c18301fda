package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Corpus.Workers != runtime.NumCPU() {
		t.Errorf("expected workers=%d, got %d", runtime.NumCPU(), cfg.Corpus.Workers)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected format=json, got %s", cfg.Output.Format)
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("expected log format=auto, got %s", cfg.Log.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_NoPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Output.Compression != "none" {
		t.Errorf("expected compression=none, got %s", cfg.Output.Compression)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("IREAL_TEST_ROOT", "/charts")
	path := writeConfig(t, "ireal.yaml", `
corpus:
  paths:
    - ${IREAL_TEST_ROOT}/jazz
    - ${IREAL_TEST_MISSING:-/fallback}
  workers: 3
  extensions: [".irealb"]
output:
  format: cbor
  compression: zstd
  digest: true
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := strings.Join(cfg.Corpus.Paths, ","); got != "/charts/jazz,/fallback" {
		t.Errorf("paths = %s", got)
	}
	if cfg.Corpus.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Corpus.Workers)
	}
	if len(cfg.Corpus.Extensions) != 1 || cfg.Corpus.Extensions[0] != ".irealb" {
		t.Errorf("extensions = %v, want [.irealb]", cfg.Corpus.Extensions)
	}
	if cfg.Output.Format != "cbor" || cfg.Output.Compression != "zstd" || !cfg.Output.Digest {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %s, want debug", cfg.Log.Level)
	}
	// Unset fields keep their defaults.
	if cfg.Log.Format != "auto" {
		t.Errorf("log format = %s, want auto", cfg.Log.Format)
	}
}

func TestLoad_JSONC(t *testing.T) {
	path := writeConfig(t, "ireal.jsonc", `{
  // corpus settings
  "corpus": {"workers": 2,},
  "output": {"format": "yaml"}, /* trailing comma allowed */
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Corpus.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Corpus.Workers)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("format = %s, want yaml", cfg.Output.Format)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad yaml", "c.yaml", "corpus: [", "parsing"},
		{"bad json", "c.json", "{", "parsing"},
		{"bad format", "c.yaml", "output:\n  format: xml\n", "output.format"},
		{"bad compression", "c.yaml", "output:\n  compression: gzip\n", "output.compression"},
		{"zero workers", "c.yaml", "corpus:\n  workers: 0\n", "corpus.workers"},
		{"extension without dot", "c.yaml", "corpus:\n  extensions: [txt]\n", "corpus.extensions"},
		{"bad level", "c.yaml", "log:\n  level: loud\n", "log.level"},
		{"bad log format", "c.yaml", "log:\n  format: xml\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvVar, "/etc/ireal.yaml")

	if got := ResolvePath("/tmp/flag.yaml"); got != "/tmp/flag.yaml" {
		t.Errorf("flag value ignored: %s", got)
	}
	if got := ResolvePath(""); got != "/etc/ireal.yaml" {
		t.Errorf("env fallback = %s", got)
	}

	t.Setenv(EnvVar, "")
	if got := ResolvePath(""); got != "" {
		t.Errorf("expected no path, got %s", got)
	}
}
