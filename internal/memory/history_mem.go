package memory

import (
	"slices"
	"sync"

	"github.com/flemzord/pplx/internal/provider"
)

// InMemoryHistoryStore is a thread-safe, in-memory implementation of HistoryStore.
type InMemoryHistoryStore struct {
	mu       sync.RWMutex
	messages []provider.LLMMessage
}

// NewInMemoryHistoryStore creates a new empty history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{}
}

// Compile-time interface check.
var _ HistoryStore = (*InMemoryHistoryStore)(nil)

// Append adds a message to the history.
func (s *InMemoryHistoryStore) Append(msg provider.LLMMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// GetAll returns all messages.
func (s *InMemoryHistoryStore) GetAll() ([]provider.LLMMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages), nil
}

// Replace swaps the history for a copy of msgs.
func (s *InMemoryHistoryStore) Replace(msgs []provider.LLMMessage) error {
	cp := slices.Clone(msgs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = cp
	return nil
}

// Purge removes all messages.
func (s *InMemoryHistoryStore) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

// Len returns the number of stored messages.
func (s *InMemoryHistoryStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages), nil
}
