package perplexity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Endpoint defaults.
const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar-pro"
	DefaultTimeout = 120 * time.Second
)

// Models lists the models accepted by the endpoint.
var Models = []string{"sonar", "sonar-pro", "sonar-reasoning", "sonar-reasoning-pro"}

// Config holds the connection settings for the completion endpoint.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int

	// Timeout bounds non-streaming requests end to end. Streaming requests
	// are only bounded by the caller's context.
	Timeout time.Duration
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("perplexity: api key is required (set PPLX_API_KEY)"))
	}
	if !ValidModel(c.Model) {
		errs = append(errs, fmt.Errorf("perplexity: unknown model %q (available: %s)", c.Model, strings.Join(Models, ", ")))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("perplexity: max tokens must be non-negative, got %d", c.MaxTokens))
	}
	return errors.Join(errs...)
}

// ValidModel reports whether model is one of Models.
func ValidModel(model string) bool {
	return slices.Contains(Models, model)
}
