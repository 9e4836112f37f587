// Package perplexity implements provider.Provider for the Perplexity Sonar
// chat completions API.
package perplexity

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/pplx/internal/provider"
)

const tracerName = "github.com/flemzord/pplx/internal/provider/perplexity"

// Observer receives request-level measurements. See internal/metrics for
// the Prometheus implementation.
type Observer interface {
	ObserveRequest(model string, stream bool, err error, elapsed time.Duration)
	IncMalformedEvent(model string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, bool, error, time.Duration) {}
func (nopObserver) IncMalformedEvent(string)                          {}

// Client talks to the completion endpoint.
type Client struct {
	config       Config
	client       *http.Client
	streamClient *http.Client
	logger       *slog.Logger
	observer     Observer
	tracer       trace.Tracer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces both the non-streaming and streaming HTTP clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
		c.streamClient = hc
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// New validates cfg and returns a ready Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		// No overall timeout: a stream lives as long as the answer takes.
		streamClient: &http.Client{},
		logger:       slog.Default(),
		observer:     nopObserver{},
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.config.Model
}

// Compile-time interface check.
var _ provider.Provider = (*Client)(nil)
