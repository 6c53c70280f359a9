// Package config loads remend configuration from YAML with environment
// fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"remend/internal/sanitize"
)

// Config holds all remend configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configures the completion backend.
	LLM LLMConfig `yaml:"llm"`

	// Candidates lists the model configurations available per logical
	// request, primary first. The orchestrator fails over down the list.
	Candidates []CandidateConfig `yaml:"candidates"`

	// Sanitizer overrides the repair thresholds.
	Sanitizer SanitizerConfig `yaml:"sanitizer"`

	// Forensics configures the parse-failure store.
	Forensics ForensicsConfig `yaml:"forensics"`

	// Spool configures the watch-directory mode.
	Spool SpoolConfig `yaml:"spool"`

	// Logging configures zap.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // gemini
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Timeout        string `yaml:"timeout"`
}

// CandidateConfig names one model candidate for failover.
type CandidateConfig struct {
	ModelKey string `yaml:"model_key"`
	Model    string `yaml:"model"`
}

// SanitizerConfig mirrors sanitize.Config in YAML form. Zero fields keep
// the tuned defaults.
type SanitizerConfig struct {
	RepetitionThreshold    int `yaml:"repetition_threshold"`
	KeptRepetitions        int `yaml:"kept_repetitions"`
	ArrayLookback          int `yaml:"array_lookback"`
	PropertyContextWindow  int `yaml:"property_context_window"`
	MaxStructurePasses     int `yaml:"max_structure_passes"`
	MaxStringPasses        int `yaml:"max_string_passes"`
	MaxDepth               int `yaml:"max_depth"`
	TruncationSafetyBuffer int `yaml:"truncation_safety_buffer"`
}

// ForensicsConfig configures the failure store.
type ForensicsConfig struct {
	DatabasePath string `yaml:"database_path"`
	Retention    string `yaml:"retention"`
}

// SpoolConfig configures watch mode.
type SpoolConfig struct {
	Directory string `yaml:"directory"`
	DoneDir   string `yaml:"done_directory"`
	Debounce  string `yaml:"debounce"`
	Workers   int    `yaml:"workers"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "remend",
		Version: "0.3.0",
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-2.5-flash",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "120s",
		},
		Forensics: ForensicsConfig{
			DatabasePath: "data/remend.db",
			Retention:    "720h",
		},
		Spool: SpoolConfig{
			Directory: "spool",
			DoneDir:   "spool/done",
			Debounce:  "500ms",
			Workers:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills credentials from the environment when the file left them
// blank. Environment wins over nothing, never over explicit config.
func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
}

// SanitizeConfig converts the YAML threshold overrides into the pipeline
// config, with zero fields falling back to the tuned defaults.
func (c *Config) SanitizeConfig() sanitize.Config {
	def := sanitize.DefaultConfig()
	s := c.Sanitizer
	pick := func(v, d int) int {
		if v > 0 {
			return v
		}
		return d
	}
	return sanitize.Config{
		RepetitionThreshold:    pick(s.RepetitionThreshold, def.RepetitionThreshold),
		KeptRepetitions:        pick(s.KeptRepetitions, def.KeptRepetitions),
		ArrayLookback:          pick(s.ArrayLookback, def.ArrayLookback),
		PropertyContextWindow:  pick(s.PropertyContextWindow, def.PropertyContextWindow),
		MaxStructurePasses:     pick(s.MaxStructurePasses, def.MaxStructurePasses),
		MaxStringPasses:        pick(s.MaxStringPasses, def.MaxStringPasses),
		MaxDepth:               pick(s.MaxDepth, def.MaxDepth),
		TruncationSafetyBuffer: pick(s.TruncationSafetyBuffer, def.TruncationSafetyBuffer),
	}
}

// LLMTimeout parses the configured timeout with a safe default.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// SpoolDebounce parses the spool debounce with a safe default.
func (c *Config) SpoolDebounce() time.Duration {
	d, err := time.ParseDuration(c.Spool.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ForensicsRetention parses the retention window with a safe default.
func (c *Config) ForensicsRetention() time.Duration {
	d, err := time.ParseDuration(c.Forensics.Retention)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}
