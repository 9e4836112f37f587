package session

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/pplx/internal/provider"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func sampleMessages() []provider.LLMMessage {
	return []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: "Previous conversation summary: x"},
		{Role: provider.MessageRoleUser, Content: "What is the capital of France?"},
		{Role: provider.MessageRoleAssistant, Content: "Paris."},
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestFileStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	saved := created.Add(time.Hour)
	s.now = fixedClock(saved)

	name, err := s.Save("trip", Session{CreatedAt: created, Model: "sonar", Messages: sampleMessages()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "trip.json" {
		t.Errorf("name = %q, want trip.json", name)
	}

	for _, lookup := range []string{"trip", "trip.json"} {
		got, err := s.Load(lookup)
		if err != nil {
			t.Fatalf("Load(%q): %v", lookup, err)
		}
		if !got.CreatedAt.Equal(created) || !got.SavedAt.Equal(saved) {
			t.Errorf("times = %v / %v", got.CreatedAt, got.SavedAt)
		}
		if got.Model != "sonar" {
			t.Errorf("model = %q", got.Model)
		}
		if !reflect.DeepEqual(got.Messages, sampleMessages()) {
			t.Errorf("messages = %+v", got.Messages)
		}
	}
}

func TestFileStore_DefaultName(t *testing.T) {
	t.Parallel()

	s := newTestFileStore(t)
	s.now = fixedClock(time.Date(2026, 10, 18, 9, 30, 5, 0, time.UTC))

	name, err := s.Save("", Session{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "session_20261018_093005.json" {
		t.Errorf("name = %q", name)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"messages": []`) {
		t.Errorf("empty session should store an empty list:\n%s", data)
	}
}

func TestFileStore_InvalidName(t *testing.T) {
	t.Parallel()

	s := newTestFileStore(t)
	for _, name := range []string{"../escape", "a/b", `a\b`, ".."} {
		if _, err := s.Save(name, Session{}); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
	}
}

func TestFileStore_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestFileStore(t)
	if _, err := s.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestFileStore_ListSortedAndSkipsCorrupt(t *testing.T) {
	t.Parallel()

	s := newTestFileStore(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = fixedClock(base, base.Add(2*time.Hour), base.Add(time.Hour))

	long := strings.Repeat("q", 60)
	mustSave(t, s, "old", []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "first"}})
	mustSave(t, s, "newest", []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: long}})
	mustSave(t, s, "middle", nil)

	if err := os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, i := range infos {
		names = append(names, i.Name)
	}
	want := []string{"newest.json", "middle.json", "old.json"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	if infos[0].Preview != strings.Repeat("q", 50)+"..." {
		t.Errorf("preview = %q", infos[0].Preview)
	}
	if infos[2].Preview != "first" || infos[2].MessageCount != 1 {
		t.Errorf("old info = %+v", infos[2])
	}
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()

	s := newTestFileStore(t)
	mustSave(t, s, "gone", nil)
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Delete err = %v", err)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msgs []provider.LLMMessage
		want string
	}{
		{"none", nil, ""},
		{"no user", []provider.LLMMessage{{Role: provider.MessageRoleAssistant, Content: "a"}}, ""},
		{"short", []provider.LLMMessage{{Role: provider.MessageRoleSystem, Content: "s"}, {Role: provider.MessageRoleUser, Content: "hi"}}, "hi"},
		{"exactly 50", []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: strings.Repeat("é", 50)}}, strings.Repeat("é", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Preview(tt.msgs); got != tt.want {
				t.Errorf("Preview = %q, want %q", got, tt.want)
			}
		})
	}
}

func mustSave(t *testing.T, s Store, name string, msgs []provider.LLMMessage) {
	t.Helper()
	if _, err := s.Save(name, Session{Model: "sonar", Messages: msgs}); err != nil {
		t.Fatalf("Save(%q): %v", name, err)
	}
}
