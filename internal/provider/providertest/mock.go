// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"strings"
	"sync"

	"github.com/flemzord/pplx/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. Unset funcs panic on call.
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc  func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResult, error)
	StreamFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.Stream, error)
	ModelNameFunc func() string

	mu            sync.Mutex
	CompleteCalls int
	StreamCalls   int
	Requests      []provider.CompletionRequest
}

// Complete delegates to CompleteFunc and tracks call count.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResult, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// Stream delegates to StreamFunc and tracks call count.
func (m *MockProvider) Stream(ctx context.Context, req provider.CompletionRequest) (provider.Stream, error) {
	m.mu.Lock()
	m.StreamCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, req)
}

// ModelName delegates to ModelNameFunc, defaulting to "mock".
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock"
	}
	return m.ModelNameFunc()
}

// SliceStream is a provider.Stream that replays a fixed list of fragments.
// When Failure is set, the stream stops after the fragments with that error.
type SliceStream struct {
	Fragments []string
	Citations []string
	Failure   error

	pos     int
	current string
	content strings.Builder
	done    bool
	closed  bool
}

// NewSliceStream returns a stream yielding fragments then ending normally.
func NewSliceStream(fragments []string, citations []string) *SliceStream {
	return &SliceStream{Fragments: fragments, Citations: citations}
}

// Next advances to the next fragment.
func (s *SliceStream) Next() bool {
	if s.done || s.closed {
		return false
	}
	if s.pos >= len(s.Fragments) {
		s.done = true
		return false
	}
	s.current = s.Fragments[s.pos]
	s.pos++
	s.content.WriteString(s.current)
	return true
}

// Fragment returns the current fragment.
func (s *SliceStream) Fragment() string { return s.current }

// Err returns Failure once the fragments are exhausted.
func (s *SliceStream) Err() error {
	if s.done {
		return s.Failure
	}
	return nil
}

// Result returns the concatenated fragments and the citations.
func (s *SliceStream) Result() provider.CompletionResult {
	return provider.CompletionResult{Content: s.content.String(), Citations: s.Citations}
}

// Close marks the stream closed.
func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool { return s.closed }

// Interface guards.
var (
	_ provider.Provider = (*MockProvider)(nil)
	_ provider.Stream   = (*SliceStream)(nil)
)
