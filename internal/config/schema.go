// Package config handles YAML configuration loading, environment variable
// expansion, and validation for pplx.
package config

import (
	"time"

	"github.com/flemzord/pplx/internal/provider/perplexity"
)

// Session storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// EnvAPIKey overrides the api_key setting when set.
const EnvAPIKey = "PPLX_API_KEY"

// DefaultSystemPrompt is the system prompt used when none is configured.
const DefaultSystemPrompt = "You are a helpful AI assistant with real-time search capabilities."

// Config is the top-level configuration structure.
type Config struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	SystemPrompt string `yaml:"system_prompt"`

	// InputTokenLimit is the history size above which older turns are
	// summarized.
	InputTokenLimit int `yaml:"input_token_limit"`

	// OutputTokenLimit is sent as max_tokens on every request.
	OutputTokenLimit int `yaml:"output_token_limit"`

	AutoSave       bool   `yaml:"auto_save"`
	SessionDir     string `yaml:"session_dir"`
	SessionBackend string `yaml:"session_backend"`

	Timeout time.Duration `yaml:"timeout"`

	// MetricsAddr enables the /metrics and /health listener when non-empty.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	Tracing TracingConfig `yaml:"tracing,omitempty"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	// Endpoint is an OTLP/HTTP collector address. Empty disables export.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BaseURL:          perplexity.DefaultBaseURL,
		Model:            perplexity.DefaultModel,
		SystemPrompt:     DefaultSystemPrompt,
		InputTokenLimit:  3000,
		OutputTokenLimit: 1000,
		SessionDir:       "~/.config/pplx/sessions",
		SessionBackend:   BackendFile,
		Timeout:          perplexity.DefaultTimeout,
	}
}

// Provider returns the endpoint settings derived from c.
func (c *Config) Provider() perplexity.Config {
	return perplexity.Config{
		APIKey:    c.APIKey,
		Model:     c.Model,
		BaseURL:   c.BaseURL,
		MaxTokens: c.OutputTokenLimit,
		Timeout:   c.Timeout,
	}
}
