// Package config loads and validates the agent's configuration from a
// YAML file, with defaults suitable for a local Ollama setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects the LLM query backend.
type Backend string

const (
	// BackendOpenAI queries an OpenAI-compatible chat completions API.
	BackendOpenAI Backend = "openai"
	// BackendOllama queries Ollama's raw generate API.
	BackendOllama Backend = "ollama"
)

// Config is the root configuration for the browser agent.
type Config struct {
	LLM         LLMConfig        `yaml:"llm"`
	Browser     BrowserConfig    `yaml:"browser"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`

	// Timeout is the wall-clock budget for one task.
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig configures the query backend.
type LLMConfig struct {
	Backend Backend `yaml:"backend"`
	Model   string  `yaml:"model"`
	BaseURL string  `yaml:"base_url"`
	APIKey  string  `yaml:"api_key"`
}

// BrowserConfig configures the browser session.
type BrowserConfig struct {
	Headless bool `yaml:"headless"`

	// SettleDelay is how long to wait after navigation before reading
	// page content.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// AllowedURLs are glob patterns matched against navigation targets.
	// An empty list allows everything.
	AllowedURLs []string `yaml:"allowed_urls"`
}

// ScreenshotConfig configures checkpoint screenshot persistence.
type ScreenshotConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend: BackendOllama,
			Model:   "llama3:8b",
		},
		Browser: BrowserConfig{
			Headless:    true,
			SettleDelay: 2 * time.Second,
		},
		Screenshots: ScreenshotConfig{
			Dir: "screenshots",
		},
		Timeout: 180 * time.Second,
	}
}

// Load reads a YAML configuration file over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the agent cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case BackendOpenAI, BackendOllama:
	default:
		return fmt.Errorf("invalid llm backend: %q (must be %q or %q)", c.LLM.Backend, BackendOpenAI, BackendOllama)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.Screenshots.Dir == "" {
		return fmt.Errorf("screenshot directory is required")
	}

	// Compile early so bad patterns fail at load time, not mid-task.
	if _, err := NewURLWhitelist(c.Browser.AllowedURLs); err != nil {
		return err
	}

	return nil
}
