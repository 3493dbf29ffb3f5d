// Package config handles configuration loading for corefuzz.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the global run configuration for a fuzzing session.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Artifact   ArtifactConfig   `yaml:"artifact"`
	Diagnostic DiagnosticConfig `yaml:"diagnostic"`
}

// RunConfig controls the supervisor loop itself.
type RunConfig struct {
	RSSLimitMB     int           `yaml:"rss_limit_mb"`
	MaxInputSize   int           `yaml:"max_input_size"`
	Timeout        time.Duration `yaml:"timeout"`
	Runs           int           `yaml:"runs"`
	CloseFDMask    int           `yaml:"close_fd_mask"`
	Regression     bool          `yaml:"regression"`
	MaxExecsPerSec float64       `yaml:"max_execs_per_sec"`
}

// MutationConfig controls the corpus/mutator engine.
type MutationConfig struct {
	MutatorsFilter string   `yaml:"mutators_filter"`
	DictPath       string   `yaml:"dict_path"`
	SeedDirs       []string `yaml:"seed_dirs"`
}

// ArtifactConfig controls where crash/timeout/OOM artifacts land.
type ArtifactConfig struct {
	ExactArtifactPath string `yaml:"exact_artifact_path"`
}

// DiagnosticConfig controls optional, non-blocking diagnostics.
type DiagnosticConfig struct {
	EnableTUI         bool `yaml:"enable_tui"`
	EnableNearDupScan bool `yaml:"enable_near_dup_scan"`
}

// Default returns the configuration matching the CLI's built-in defaults.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			RSSLimitMB:   2048,
			MaxInputSize: 4096,
			Timeout:      30 * time.Second,
			Runs:         -1,
		},
		Diagnostic: DiagnosticConfig{
			EnableNearDupScan: true,
		},
	}
}

// LoadYAML reads path and merges it onto a Default configuration. A path
// that does not exist returns the defaults unchanged, matching the CLI's
// posture of treating --config as optional.
func LoadYAML(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
