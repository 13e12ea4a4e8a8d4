// ABOUTME: Configuration management for beatalign with YAML loading and env overrides.
// ABOUTME: Handles provider, cache, alignment defaults, paths and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/beatalign/internal/align"
	"github.com/2389-research/beatalign/internal/embeddings"
)

// Provider kinds.
const (
	ProviderLexical = "lexical"
	ProviderFuzzy   = "fuzzy"
	ProviderRemote  = "remote"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// Defaults filled in by ApplyDefaults.
const (
	DefaultModel     = "text-embedding-3-small"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultMaxCells  = 4_000_000
	DefaultWorkers   = 4
)

// Config stores beatalign configuration loaded from ~/.config/beatalign/config.yaml.
type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Cache      CacheConfig      `yaml:"cache"`
	Align      AlignConfig      `yaml:"align"`
	Narratives NarrativesConfig `yaml:"narratives"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ProviderConfig selects and configures the similarity provider.
type ProviderConfig struct {
	Kind           string `yaml:"kind" env:"BEATALIGN_PROVIDER"`
	APIURL         string `yaml:"api_url,omitempty" env:"BEATALIGN_API_URL"`
	APIKey         string `yaml:"api_key,omitempty" env:"BEATALIGN_API_KEY"`
	Model          string `yaml:"model,omitempty" env:"BEATALIGN_MODEL"`
	Dimensions     int    `yaml:"dimensions,omitempty" env:"BEATALIGN_DIMENSIONS"`
	FuzzyAlgorithm string `yaml:"fuzzy_algorithm,omitempty" env:"BEATALIGN_FUZZY_ALGORITHM"`
	BatchSize      int    `yaml:"batch_size,omitempty" env:"BEATALIGN_BATCH_SIZE"`
}

// CacheConfig controls embedding reuse across runs.
type CacheConfig struct {
	Backend    string `yaml:"backend" env:"BEATALIGN_CACHE"`
	Path       string `yaml:"path,omitempty" env:"BEATALIGN_CACHE_PATH"`
	MaxEntries int    `yaml:"max_entries,omitempty" env:"BEATALIGN_CACHE_MAX_ENTRIES"`
}

// AlignConfig holds default alignment parameters. Unset values fall back to
// the engine defaults, so an explicit zero is kept.
type AlignConfig struct {
	Threshold         *float64 `yaml:"threshold,omitempty" env:"BEATALIGN_THRESHOLD"`
	TopK              *int     `yaml:"top_k,omitempty" env:"BEATALIGN_TOP_K"`
	MatchScore        *float64 `yaml:"match_score,omitempty" env:"BEATALIGN_MATCH_SCORE"`
	MismatchPenalty   *float64 `yaml:"mismatch_penalty,omitempty" env:"BEATALIGN_MISMATCH_PENALTY"`
	GapPenalty        *float64 `yaml:"gap_penalty,omitempty" env:"BEATALIGN_GAP_PENALTY"`
	SimilarityWeight  *float64 `yaml:"similarity_weight,omitempty" env:"BEATALIGN_SIMILARITY_WEIGHT"`
	MinAlignmentScore *float64 `yaml:"min_alignment_score,omitempty" env:"BEATALIGN_MIN_ALIGNMENT_SCORE"`
	MaxAlignments     *int     `yaml:"max_alignments,omitempty" env:"BEATALIGN_MAX_ALIGNMENTS"`
	MaxCells          int      `yaml:"max_cells,omitempty" env:"BEATALIGN_MAX_CELLS"`
	Workers           int      `yaml:"workers,omitempty" env:"BEATALIGN_WORKERS"`
}

// NarrativesConfig locates narrative files.
type NarrativesConfig struct {
	Dir string `yaml:"dir,omitempty" env:"BEATALIGN_NARRATIVES_DIR"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"BEATALIGN_LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"BEATALIGN_LOG_FORMAT"`
}

// TelemetryConfig enables OTLP trace export when an endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty" env:"BEATALIGN_OTLP_ENDPOINT"`
}

// HasRemote returns true if a remote embedding endpoint is configured.
func (c *Config) HasRemote() bool {
	return c.Provider.APIURL != "" && c.Provider.Model != ""
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Provider.Kind == "" {
		if c.HasRemote() {
			c.Provider.Kind = ProviderRemote
		} else {
			c.Provider.Kind = ProviderLexical
		}
	}
	if c.Provider.Kind == ProviderRemote && c.Provider.Model == "" {
		c.Provider.Model = DefaultModel
	}
	if c.Provider.Kind == ProviderFuzzy && c.Provider.FuzzyAlgorithm == "" {
		c.Provider.FuzzyAlgorithm = embeddings.DefaultFuzzyAlgorithm
	}
	if c.Provider.BatchSize == 0 {
		c.Provider.BatchSize = embeddings.DefaultBatchSize
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Align.MaxCells == 0 {
		c.Align.MaxCells = DefaultMaxCells
	}
	if c.Align.Workers == 0 {
		c.Align.Workers = DefaultWorkers
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	if !slices.Contains([]string{ProviderLexical, ProviderFuzzy, ProviderRemote}, c.Provider.Kind) {
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	if c.Provider.Kind == ProviderRemote && c.Provider.APIURL == "" {
		return fmt.Errorf("provider.api_url is required for the remote provider")
	}
	if !slices.Contains([]string{CacheNone, CacheMemory, CacheFile, CacheSQLite}, c.Cache.Backend) {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if c.Align.MaxCells < 0 || c.Align.Workers < 0 {
		return fmt.Errorf("align.max_cells and align.workers must not be negative")
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	params := c.AlignParams()
	for _, mode := range align.Modes {
		if err := params.Validate(mode); err != nil {
			return fmt.Errorf("align: %w", err)
		}
	}
	return nil
}

// AlignParams returns the engine parameters with configured overrides applied.
func (c *Config) AlignParams() align.Params {
	p := align.DefaultParams()
	a := c.Align
	setFloat(&p.Threshold, a.Threshold)
	setFloat(&p.MatchScore, a.MatchScore)
	setFloat(&p.MismatchPenalty, a.MismatchPenalty)
	setFloat(&p.GapPenalty, a.GapPenalty)
	setFloat(&p.SimilarityWeight, a.SimilarityWeight)
	setFloat(&p.MinAlignmentScore, a.MinAlignmentScore)
	if a.TopK != nil {
		p.TopK = *a.TopK
	}
	if a.MaxAlignments != nil {
		p.MaxAlignments = *a.MaxAlignments
	}
	return p
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// GetNarrativesDir returns the narratives directory, defaulting to ./narratives.
func (c *Config) GetNarrativesDir() (string, error) {
	if c.Narratives.Dir != "" {
		return ExpandPath(c.Narratives.Dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "narratives"), nil
}

// GetCachePath returns the persistent cache location for the configured backend.
func (c *Config) GetCachePath() (string, error) {
	if c.Cache.Path != "" {
		return ExpandPath(c.Cache.Path)
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	name := "vectors.bin"
	if c.Cache.Backend == CacheSQLite {
		name = "vectors.db"
	}
	return filepath.Join(dir, name), nil
}

// CacheDir returns the default cache directory.
func CacheDir() (string, error) {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "beatalign"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "beatalign", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk, applies BEATALIGN_* environment overrides and
// fills defaults. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
