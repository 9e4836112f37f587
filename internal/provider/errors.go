package provider

import (
	"errors"
	"fmt"
)

// ErrTransport is the root of every failure that happens between the client
// and the completion endpoint: connection errors and non-success statuses.
// Transport errors are fatal to the current request and never retried here.
var ErrTransport = errors.New("transport error")

// Transport error classes. All of them satisfy errors.Is(err, ErrTransport).
var (
	// ErrRateLimit indicates the endpoint returned a rate limit response.
	ErrRateLimit = fmt.Errorf("%w: rate limited", ErrTransport)

	// ErrAuth indicates the API key was rejected.
	ErrAuth = fmt.Errorf("%w: authentication failed", ErrTransport)

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = fmt.Errorf("%w: context length exceeded", ErrTransport)

	// ErrProviderDown indicates the endpoint is unreachable or failing.
	ErrProviderDown = fmt.Errorf("%w: provider unavailable", ErrTransport)
)

// IsTransport reports whether err belongs to the transport error class.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsRetryable reports whether the error is transient. The client never
// retries on its own; this only helps callers decide what to tell the user.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}
