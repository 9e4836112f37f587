package security

import (
	"strings"
	"testing"
)

func TestRedactor_Patterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"perplexity key", "key pplx-abcdefghijklmnopqrstuvwxyz0123", "key " + RedactPlaceholder},
		{"bearer header", "Authorization: Bearer abc.def-123", "Authorization: Bearer " + RedactPlaceholder},
		{"lowercase bearer", "bearer tok", "bearer " + RedactPlaceholder},
		{"generic sk key", "sk-abcdefghijklmnopqrstuvwxyz", RedactPlaceholder},
		{"short pplx prefix untouched", "pplx-short", "pplx-short"},
		{"plain text", "nothing to hide", "nothing to hide"},
		{"empty", "", ""},
	}
	r := NewRedactor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := r.Redact(tt.input); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_Literals(t *testing.T) {
	t.Parallel()

	r := NewRedactor("my-custom-key", "")
	r.AddLiteral("")
	r.AddLiteral("other")

	got := r.Redact("a my-custom-key b other c my-custom-key")
	if strings.Contains(got, "my-custom-key") || strings.Contains(got, "other") {
		t.Errorf("literal leaked: %q", got)
	}
	if strings.Count(got, RedactPlaceholder) != 3 {
		t.Errorf("got %q, want three placeholders", got)
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", RedactPlaceholder},
		{"pplx-0123456789abcdef", "pplx...cdef"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
