package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	InputDir      string `yaml:"input_dir"`
	OutputDir     string `yaml:"output_dir"`
	CheckpointDir string `yaml:"checkpoint_dir"`
	Language      string `yaml:"language"`
	MinWords      int    `yaml:"min_words"`
	MaxParallel   int    `yaml:"max_parallel"`
	Schedule      string `yaml:"schedule"`
	RunOnStart    bool   `yaml:"run_on_start"`

	Backend  BackendConfig  `yaml:"backend"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Sampling SamplingConfig `yaml:"sampling"`
}

type BackendConfig struct {
	URL             string  `yaml:"url"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	ContextWindow   int     `yaml:"context_window"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	CachePath       string  `yaml:"cache_path"`
}

type ChunkingConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

type SamplingConfig struct {
	Ratio float64 `yaml:"ratio"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "summaries"
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = ".bookbrief"
	}
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	if cfg.MinWords == 0 {
		cfg.MinWords = 300
	}
	if cfg.MaxParallel == 0 {
		cfg.MaxParallel = 1
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 6 * * *"
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = "http://localhost:11434"
	}
	if cfg.Backend.Model == "" {
		cfg.Backend.Model = "qwen3:8b"
	}
	if cfg.Backend.Temperature == 0 {
		cfg.Backend.Temperature = 0.3
	}
	if cfg.Backend.ContextWindow == 0 {
		cfg.Backend.ContextWindow = 128000
	}
	if cfg.Backend.MaxOutputTokens == 0 {
		cfg.Backend.MaxOutputTokens = 2048
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 300
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 12000
	}
	if cfg.Chunking.OverlapChars == 0 {
		cfg.Chunking.OverlapChars = 600
	}
	if cfg.Sampling.Ratio == 0 {
		cfg.Sampling.Ratio = 1.0
	}
}

func validate(cfg *Config) error {
	if cfg.InputDir == "" {
		return fmt.Errorf("config: input_dir is required")
	}
	if cfg.MaxParallel < 1 {
		return fmt.Errorf("config: max_parallel must be at least 1, got %d", cfg.MaxParallel)
	}
	if cfg.Chunking.MaxChars < 1000 {
		return fmt.Errorf("config: chunking.max_chars must be at least 1000, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Chunking.OverlapChars < 0 {
		return fmt.Errorf("config: chunking.overlap_chars must not be negative, got %d", cfg.Chunking.OverlapChars)
	}
	if cfg.Chunking.OverlapChars >= cfg.Chunking.MaxChars/2 {
		return fmt.Errorf("config: chunking.overlap_chars %d too large for max_chars %d",
			cfg.Chunking.OverlapChars, cfg.Chunking.MaxChars)
	}
	if cfg.Sampling.Ratio <= 0 || cfg.Sampling.Ratio > 1 {
		return fmt.Errorf("config: sampling.ratio must be in (0,1], got %g", cfg.Sampling.Ratio)
	}
	if cfg.Backend.Temperature < 0 || cfg.Backend.Temperature > 2 {
		return fmt.Errorf("config: backend.temperature must be in [0,2], got %g", cfg.Backend.Temperature)
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
