package ctxengine

import (
	"context"
	"errors"
	"strings"

	"github.com/flemzord/pplx/internal/provider"
)

// RecentWindow is the number of most-recent messages preserved verbatim by
// compaction. History with RecentWindow messages or fewer is never compacted.
const RecentWindow = 4

// SummaryPrefix starts the content of the synthetic summary message.
const SummaryPrefix = "Previous conversation summary: "

// ErrSummarizationFailed indicates that the summarization call failed. The
// history is left unmodified when it is reported.
var ErrSummarizationFailed = errors.New("ctxengine: summarization failed")

// Summarizer produces a condensed summary of a conversation transcript.
// The concrete implementation is the completion client's non-streaming call.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, transcript string) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

// split partitions history into the stale prefix and the recent window.
func split(history []provider.LLMMessage) (stale, recent []provider.LLMMessage) {
	cut := len(history) - RecentWindow
	return history[:cut], history[cut:]
}

// renderTranscript flattens messages to "role: content" lines.
func renderTranscript(messages []provider.LLMMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// compacted builds the replacement history: one summary message followed
// by the recent window in original order.
func compacted(summary string, recent []provider.LLMMessage) []provider.LLMMessage {
	out := make([]provider.LLMMessage, 0, 1+len(recent))
	out = append(out, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: SummaryPrefix + summary,
	})
	return append(out, recent...)
}
