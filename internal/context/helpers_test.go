package ctxengine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/pplx/internal/memory"
	"github.com/flemzord/pplx/internal/provider"
)

// mockSummarizer implements ctxengine.Summarizer for tests.
type mockSummarizer struct {
	result     string
	err        error
	called     int
	transcript string
}

func (m *mockSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	m.called++
	m.transcript = transcript
	return m.result, m.err
}

// recordingObserver implements ctxengine.CompactionObserver.
type recordingObserver struct {
	statuses []string
}

func (o *recordingObserver) ObserveCompaction(status string, _, _ int) {
	o.statuses = append(o.statuses, status)
}

// failingReplaceStore rejects Replace and otherwise behaves like the
// in-memory store.
type failingReplaceStore struct {
	*memory.InMemoryHistoryStore
}

func (failingReplaceStore) Replace([]provider.LLMMessage) error {
	return errors.New("disk full")
}

// makeTestMessages creates n alternating user/assistant messages whose
// content is size characters long.
func makeTestMessages(n, size int) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, n)
	for i := range msgs {
		role := provider.MessageRoleUser
		if i%2 == 1 {
			role = provider.MessageRoleAssistant
		}
		label := fmt.Sprintf("msg-%d", i)
		if size > len(label) {
			label += strings.Repeat(".", size-len(label))
		}
		msgs[i] = provider.LLMMessage{Role: role, Content: label}
	}
	return msgs
}

func seed(store memory.HistoryStore, msgs []provider.LLMMessage) {
	for _, m := range msgs {
		_ = store.Append(m)
	}
}
