// ABOUTME: Tests for beatalign configuration loading and path expansion.
// ABOUTME: Covers YAML parsing, env overrides, defaults, validation and save roundtrip.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2389-research/beatalign/internal/align"
)

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"absolute", "/tmp/foo", "/tmp/foo"},
		{"relative", "foo/bar", "foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	// Set config path to a non-existent location
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider.Kind != ProviderLexical {
		t.Errorf("expected lexical provider by default, got %q", cfg.Provider.Kind)
	}
	if cfg.Cache.Backend != CacheFile {
		t.Errorf("expected file cache by default, got %q", cfg.Cache.Backend)
	}
	if cfg.HasRemote() {
		t.Error("expected HasRemote() to be false for default config")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.AlignParams() != align.DefaultParams() {
		t.Errorf("expected default params, got %+v", cfg.AlignParams())
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir := filepath.Join(tmpDir, "beatalign")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configData := `provider:
  kind: remote
  api_url: "https://api.example.com/v1"
  api_key: "test-key"
  model: "embed-small"
cache:
  backend: sqlite
align:
  threshold: 0
  top_k: 5
  gap_penalty: -2
narratives:
  dir: "~/stories"
log:
  level: debug
  format: json
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configData), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if cfg.Provider.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Provider.APIKey)
	}
	if !cfg.HasRemote() {
		t.Error("expected HasRemote() to be true")
	}

	params := cfg.AlignParams()
	if params.Threshold != 0 {
		t.Errorf("explicit zero threshold must be kept, got %v", params.Threshold)
	}
	if params.TopK != 5 || params.GapPenalty != -2 {
		t.Errorf("unexpected params %+v", params)
	}
	if params.MatchScore != align.DefaultMatchScore {
		t.Errorf("unset match_score should default, got %v", params.MatchScore)
	}

	home, _ := os.UserHomeDir()
	if got, err := cfg.GetNarrativesDir(); err != nil {
		t.Fatalf("GetNarrativesDir() error: %v", err)
	} else if got != filepath.Join(home, "stories") {
		t.Errorf("GetNarrativesDir() = %q", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("BEATALIGN_PROVIDER", "fuzzy")
	t.Setenv("BEATALIGN_THRESHOLD", "0.25")
	t.Setenv("BEATALIGN_CACHE", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Provider.Kind != ProviderFuzzy {
		t.Errorf("expected fuzzy provider, got %q", cfg.Provider.Kind)
	}
	if cfg.Provider.FuzzyAlgorithm == "" {
		t.Error("expected fuzzy algorithm default to be applied")
	}
	if cfg.AlignParams().Threshold != 0.25 {
		t.Errorf("expected threshold 0.25, got %v", cfg.AlignParams().Threshold)
	}
	if cfg.Cache.Backend != CacheNone {
		t.Errorf("expected cache none, got %q", cfg.Cache.Backend)
	}
}

func TestValidateRejects(t *testing.T) {
	bad := 3.0
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider.Kind = "magic" }},
		{"remote without url", func(c *Config) { c.Provider.Kind = ProviderRemote }},
		{"cache", func(c *Config) { c.Cache.Backend = "redis" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"threshold", func(c *Config) { c.Align.Threshold = &bad }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	topK := 7
	cfg := &Config{
		Provider: ProviderConfig{
			Kind:   ProviderRemote,
			APIURL: "https://saved.example.com",
			APIKey: "saved-key",
			Model:  "saved-model",
		},
		Align: AlignConfig{TopK: &topK},
	}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	path, _ := GetConfigPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Provider.APIKey != "saved-key" {
		t.Errorf("expected api_key 'saved-key', got %q", loaded.Provider.APIKey)
	}
	if loaded.AlignParams().TopK != 7 {
		t.Errorf("expected top_k 7, got %d", loaded.AlignParams().TopK)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	cfg := &Config{}
	cfg.ApplyDefaults()

	cachePath, err := cfg.GetCachePath()
	if err != nil {
		t.Fatalf("GetCachePath() error: %v", err)
	}
	if cachePath != filepath.Join("/tmp/xdg-cache", "beatalign", "vectors.bin") {
		t.Errorf("GetCachePath() = %q", cachePath)
	}

	cfg.Cache.Backend = CacheSQLite
	cachePath, _ = cfg.GetCachePath()
	if filepath.Base(cachePath) != "vectors.db" {
		t.Errorf("expected sqlite cache file, got %q", cachePath)
	}

	// Narratives dir uses cwd
	dir, err := cfg.GetNarrativesDir()
	if err != nil {
		t.Fatalf("GetNarrativesDir() error: %v", err)
	}
	cwd, _ := os.Getwd()
	if dir != filepath.Join(cwd, "narratives") {
		t.Errorf("GetNarrativesDir() = %q", dir)
	}
}
