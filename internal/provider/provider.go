package provider

import "context"

// Provider is the interface for communicating with a chat-completion endpoint.
// Concrete implementations live in sub-packages (e.g., provider/perplexity).
type Provider interface {
	// Complete sends a non-streaming completion request and returns the
	// full response. A response without choices yields an empty result,
	// not an error.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)

	// Stream sends a streaming completion request. Connection failures and
	// non-success statuses are returned directly, before any fragment is
	// produced. The returned Stream must be closed by the caller.
	Stream(ctx context.Context, req CompletionRequest) (Stream, error)

	// ModelName returns the identifier of the configured model.
	ModelName() string
}

// Stream is an in-flight streaming completion. It is pulled one fragment at
// a time and is not safe for concurrent use.
//
//	s, err := p.Stream(ctx, req)
//	if err != nil { ... }
//	defer s.Close()
//	for s.Next() {
//		render(s.Fragment())
//	}
//	if err := s.Err(); err != nil { ... }
//	result := s.Result()
type Stream interface {
	// Next advances to the next non-empty content fragment. It blocks until
	// a complete line has arrived and returns false once the stream has
	// terminated, either normally or with an error.
	Next() bool

	// Fragment returns the fragment produced by the last successful Next.
	Fragment() string

	// Err returns the error that terminated the stream, if any.
	Err() error

	// Result returns the accumulated content and the last citation list
	// seen. It is only meaningful after Next has returned false and Err
	// is nil.
	Result() CompletionResult

	// Close releases the underlying connection. It is safe to call more
	// than once and at any point of the iteration.
	Close() error
}
