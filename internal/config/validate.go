package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/pplx/internal/provider/perplexity"
)

// Validate checks c and reports every problem at once.
func Validate(c *Config) error {
	var errs []error

	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("config: api_key is required (or set %s)", EnvAPIKey))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("config: base_url is required"))
	}
	if !perplexity.ValidModel(c.Model) {
		errs = append(errs, fmt.Errorf("config: unknown model %q (available: %s)", c.Model, strings.Join(perplexity.Models, ", ")))
	}
	if c.InputTokenLimit <= 0 {
		errs = append(errs, fmt.Errorf("config: input_token_limit must be positive, got %d", c.InputTokenLimit))
	}
	if c.OutputTokenLimit < 0 {
		errs = append(errs, fmt.Errorf("config: output_token_limit must be non-negative, got %d", c.OutputTokenLimit))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: timeout must be non-negative, got %s", c.Timeout))
	}
	if c.SessionDir == "" {
		errs = append(errs, errors.New("config: session_dir is required"))
	}
	switch c.SessionBackend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: session_backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.SessionBackend))
	}

	return errors.Join(errs...)
}
