// Package metrics records request, stream, and compaction counters in a
// Prometheus registry and optionally serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flemzord/pplx/internal/provider"
)

// Recorder implements the provider and context-manager observer hooks on a
// private registry, so several recorders can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry
	started  time.Time

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	malformedTotal    *prometheus.CounterVec
	compactionsTotal  *prometheus.CounterVec
	compactionSavings prometheus.Histogram
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		started:  time.Now(),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pplx_requests_total",
				Help: "Completion requests by model, mode, and outcome.",
			},
			[]string{"model", "mode", "status", "error_type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pplx_request_duration_seconds",
				Help:    "Time from request start to final fragment or response.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "mode"},
		),
		malformedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pplx_stream_malformed_events_total",
				Help: "Stream data lines skipped because their payload was not valid JSON.",
			},
			[]string{"model"},
		),
		compactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pplx_compactions_total",
				Help: "History compaction attempts by result.",
			},
			[]string{"status"},
		),
		compactionSavings: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pplx_compaction_tokens_saved",
				Help:    "Estimated tokens removed from history by a successful compaction.",
				Buckets: prometheus.ExponentialBuckets(64, 2, 8),
			},
		),
	}
}

// Registry exposes the underlying registry for scraping.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest records one completion request.
func (r *Recorder) ObserveRequest(model string, stream bool, err error, elapsed time.Duration) {
	mode := "complete"
	if stream {
		mode = "stream"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.requestsTotal.WithLabelValues(model, mode, status, errorType(err)).Inc()
	r.requestDuration.WithLabelValues(model, mode).Observe(elapsed.Seconds())
}

// IncMalformedEvent counts one skipped stream line.
func (r *Recorder) IncMalformedEvent(model string) {
	r.malformedTotal.WithLabelValues(model).Inc()
}

// ObserveCompaction records one CompressIfNeeded call.
func (r *Recorder) ObserveCompaction(status string, tokensBefore, tokensAfter int) {
	r.compactionsTotal.WithLabelValues(status).Inc()
	if status == "compressed" && tokensBefore > tokensAfter {
		r.compactionSavings.Observe(float64(tokensBefore - tokensAfter))
	}
}

func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, provider.ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, provider.ErrAuth):
		return "auth"
	case errors.Is(err, provider.ErrContextLength):
		return "context_length"
	case errors.Is(err, provider.ErrProviderDown):
		return "provider_down"
	case errors.Is(err, provider.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}
