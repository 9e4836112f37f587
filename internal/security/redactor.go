// Package security keeps the API key out of log output and terminal
// displays.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder replaces every redacted secret.
const RedactPlaceholder = "***REDACTED***"

// defaultPatterns match credential shapes that may appear in request
// dumps, error bodies, or URLs.
var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`pplx-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)(Bearer\s+)[A-Za-z0-9\-._~+/]+=*`),
	regexp.MustCompile(`sk-[A-Za-z0-9\-]{20,}`),
}

// Redactor replaces known secret shapes and registered literal values.
// It is safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	literals []string
}

// NewRedactor returns a Redactor that also hides each non-empty literal.
func NewRedactor(literals ...string) *Redactor {
	r := &Redactor{}
	for _, l := range literals {
		r.AddLiteral(l)
	}
	return r
}

// AddLiteral registers a secret value loaded at runtime, such as the
// configured API key. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact returns s with every secret replaced by RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	literals := r.literals
	r.mu.RUnlock()

	// Literals first so a registered key is hidden whole even when it does
	// not match a pattern.
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for i, p := range defaultPatterns {
		if i == 1 {
			// Keep the scheme word so the log still reads as an auth header.
			s = p.ReplaceAllString(s, "${1}"+RedactPlaceholder)
			continue
		}
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// Mask shortens a secret for display, keeping only its first and last
// four characters.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return RedactPlaceholder
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
