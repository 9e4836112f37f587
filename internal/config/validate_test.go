package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.APIKey = "pplx-test"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing key", func(c *Config) { c.APIKey = "" }, "api_key"},
		{"unknown model", func(c *Config) { c.Model = "gpt-4" }, "unknown model"},
		{"zero budget", func(c *Config) { c.InputTokenLimit = 0 }, "input_token_limit"},
		{"negative output", func(c *Config) { c.OutputTokenLimit = -1 }, "output_token_limit"},
		{"backend", func(c *Config) { c.SessionBackend = "redis" }, "session_backend"},
		{"no base url", func(c *Config) { c.BaseURL = "" }, "base_url"},
		{"no session dir", func(c *Config) { c.SessionDir = "" }, "session_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_JoinsAll(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.APIKey = ""
	cfg.Model = "bad"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "api_key") || !strings.Contains(err.Error(), "bad") {
		t.Errorf("error should mention both problems: %v", err)
	}
}

func TestProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	p := cfg.Provider()
	if p.APIKey != cfg.APIKey || p.MaxTokens != 1000 || p.Model != cfg.Model || p.Timeout != cfg.Timeout {
		t.Errorf("Provider() = %+v", p)
	}
}
