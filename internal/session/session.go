// Package session persists conversations between runs. A Store saves and
// restores a named snapshot of the history; FileStore keeps one JSON document
// per session in a directory.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/flemzord/pplx/internal/provider"
)

// ErrNotFound is returned when a named session does not exist.
var ErrNotFound = errors.New("session: not found")

// previewLength is the number of characters of the first user message shown
// in session listings.
const previewLength = 50

// Session is a saved conversation.
type Session struct {
	CreatedAt time.Time             `json:"created_at"`
	SavedAt   time.Time             `json:"saved_at"`
	Model     string                `json:"model"`
	Messages  []provider.LLMMessage `json:"messages"`
}

// Info summarises a saved session for listings.
type Info struct {
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	SavedAt      time.Time `json:"saved_at"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// Store persists sessions.
type Store interface {
	// Save writes s under name and returns the stored name. An empty name
	// gets a timestamped default.
	Save(name string, s Session) (string, error)

	// Load returns the session stored under name.
	Load(name string) (Session, error)

	// List returns all sessions, most recently saved first.
	List() ([]Info, error)

	// Delete removes the session stored under name.
	Delete(name string) error
}

// DefaultName returns the timestamped name used when none is given.
func DefaultName(now time.Time) string {
	return "session_" + now.Format("20060102_150405")
}

// ValidateName rejects names that would escape the session directory.
func ValidateName(name string) error {
	if name == "" {
		return nil
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("session: invalid name %q", name)
	}
	return nil
}

// Preview returns the first user message truncated for display.
func Preview(msgs []provider.LLMMessage) string {
	for _, m := range msgs {
		if m.Role != provider.MessageRoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > previewLength {
			return string(runes[:previewLength]) + "..."
		}
		return m.Content
	}
	return ""
}
