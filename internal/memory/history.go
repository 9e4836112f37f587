// Package memory provides the conversation history store boundary and an
// in-memory implementation.
package memory

import "github.com/flemzord/pplx/internal/provider"

// HistoryStore holds the authoritative message list of one conversation.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Append adds a message to the end of the history.
	Append(msg provider.LLMMessage) error

	// GetAll returns a copy of all messages in chronological order.
	GetAll() ([]provider.LLMMessage, error)

	// Replace swaps the whole history for msgs in one step. It either
	// fully succeeds or leaves the previous history in place.
	Replace(msgs []provider.LLMMessage) error

	// Purge removes all messages.
	Purge() error

	// Len returns the number of stored messages.
	Len() (int, error)
}
