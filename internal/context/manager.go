package ctxengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/flemzord/pplx/internal/memory"
	"github.com/flemzord/pplx/internal/provider"
)

const tracerName = "github.com/flemzord/pplx/internal/context"

// ErrEmptyRole is returned by Append when the role is empty.
var ErrEmptyRole = errors.New("ctxengine: message role is required")

// CompressStatus is the kind of outcome of a CompressIfNeeded call.
type CompressStatus int

// CompressStatus values.
const (
	// CompressSkipped means the history was within budget or too short.
	CompressSkipped CompressStatus = iota
	// CompressDone means stale history was replaced by a summary.
	CompressDone
	// CompressFailed means summarization failed and history is unchanged.
	CompressFailed
)

// String returns a lower-case label used in logs and metrics.
func (s CompressStatus) String() string {
	switch s {
	case CompressDone:
		return "compressed"
	case CompressFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// CompressOutcome reports what CompressIfNeeded did. A failed outcome carries
// the cause in Err; the caller decides how to surface it.
type CompressOutcome struct {
	Status       CompressStatus
	TokensBefore int
	TokensAfter  int
	// Summarized is the number of stale messages folded into the summary.
	Summarized int
	Err        error
}

// Failed reports whether summarization was attempted and failed.
func (o CompressOutcome) Failed() bool {
	return o.Status == CompressFailed
}

// CompactionObserver receives compaction outcomes (see internal/metrics).
type CompactionObserver interface {
	ObserveCompaction(status string, tokensBefore, tokensAfter int)
}

// Manager owns the message history of one conversation and keeps it under a
// token budget. It is driven by a single caller: appends and compaction are
// sequenced by that caller, never run concurrently.
type Manager struct {
	store      memory.HistoryStore
	estimator  TokenEstimator
	summarizer Summarizer
	logger     *slog.Logger
	observer   CompactionObserver
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver attaches a compaction observer.
func WithObserver(o CompactionObserver) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// NewManager creates a Manager over store. A nil store gets an in-memory
// one; a nil estimator falls back to CharEstimator.
func NewManager(store memory.HistoryStore, estimator TokenEstimator, summarizer Summarizer, opts ...ManagerOption) *Manager {
	if store == nil {
		store = memory.NewInMemoryHistoryStore()
	}
	if estimator == nil {
		estimator = CharEstimator{}
	}
	m := &Manager{
		store:      store,
		estimator:  estimator,
		summarizer: summarizer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Append adds one message to the end of the history.
func (m *Manager) Append(role provider.MessageRole, content string) error {
	if role == "" {
		return ErrEmptyRole
	}
	if err := m.store.Append(provider.LLMMessage{Role: role, Content: content}); err != nil {
		return fmt.Errorf("ctxengine: append: %w", err)
	}
	return nil
}

// Messages returns a copy of the current history.
func (m *Manager) Messages() ([]provider.LLMMessage, error) {
	msgs, err := m.store.GetAll()
	if err != nil {
		return nil, fmt.Errorf("ctxengine: read history: %w", err)
	}
	return msgs, nil
}

// Len returns the number of messages in the history.
func (m *Manager) Len() int {
	n, err := m.store.Len()
	if err != nil {
		return 0
	}
	return n
}

// Reset clears the history.
func (m *Manager) Reset() error {
	if err := m.store.Purge(); err != nil {
		return fmt.Errorf("ctxengine: reset: %w", err)
	}
	return nil
}

// Load replaces the history with msgs, e.g. from a saved session.
func (m *Manager) Load(msgs []provider.LLMMessage) error {
	if err := m.store.Replace(msgs); err != nil {
		return fmt.Errorf("ctxengine: load: %w", err)
	}
	return nil
}

// ApproximateTokenCount sums the estimated cost of every message.
func (m *Manager) ApproximateTokenCount(msgs []provider.LLMMessage) int {
	return EstimateMessages(m.estimator, msgs)
}

// HistoryTokens is ApproximateTokenCount over the current history.
func (m *Manager) HistoryTokens() int {
	msgs, err := m.store.GetAll()
	if err != nil {
		return 0
	}
	return m.ApproximateTokenCount(msgs)
}

// CompressIfNeeded summarizes stale history when it exceeds budget.
//
// Compaction happens only when the approximate token count is strictly
// greater than budget and the history holds more than RecentWindow
// messages. The stale prefix is rendered as a transcript and summarized;
// the history then becomes one system summary message followed by the last
// RecentWindow messages unchanged. If summarization fails the history is
// left exactly as it was.
func (m *Manager) CompressIfNeeded(ctx context.Context, budget int) CompressOutcome {
	history, err := m.store.GetAll()
	if err != nil {
		return CompressOutcome{Status: CompressFailed, Err: fmt.Errorf("ctxengine: read history: %w", err)}
	}

	before := m.ApproximateTokenCount(history)
	out := CompressOutcome{Status: CompressSkipped, TokensBefore: before, TokensAfter: before}
	if before <= budget || len(history) <= RecentWindow {
		return out
	}
	if m.summarizer == nil {
		out.Status = CompressFailed
		out.Err = fmt.Errorf("%w: no summarizer configured", ErrSummarizationFailed)
		m.observe(out)
		return out
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ctxengine.compress")
	defer span.End()

	stale, recent := split(history)
	span.SetAttributes(
		attribute.Int("ctx.tokens_before", before),
		attribute.Int("ctx.budget", budget),
		attribute.Int("ctx.stale_messages", len(stale)),
	)

	summary, err := m.summarizer.Summarize(ctx, renderTranscript(stale))
	if err != nil {
		out.Status = CompressFailed
		out.Err = fmt.Errorf("%w: %w", ErrSummarizationFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Warn("ctxengine: summarization failed, history left unchanged", "error", err)
		m.observe(out)
		return out
	}

	next := compacted(summary, recent)
	if err := m.store.Replace(next); err != nil {
		out.Status = CompressFailed
		out.Err = fmt.Errorf("ctxengine: replace history: %w", err)
		m.observe(out)
		return out
	}

	out.Status = CompressDone
	out.Summarized = len(stale)
	out.TokensAfter = m.ApproximateTokenCount(next)
	m.logger.Debug("ctxengine: history compressed",
		"summarized", out.Summarized,
		"tokens_before", out.TokensBefore,
		"tokens_after", out.TokensAfter,
	)
	m.observe(out)
	return out
}

func (m *Manager) observe(out CompressOutcome) {
	if m.observer != nil {
		m.observer.ObserveCompaction(out.Status.String(), out.TokensBefore, out.TokensAfter)
	}
}

// BuildOutboundMessages returns the system prompt, the history and the new
// user turn as one request message list. The history is not modified; the
// caller appends the user turn separately.
func (m *Manager) BuildOutboundMessages(systemPrompt, newUserTurn string) ([]provider.LLMMessage, error) {
	history, err := m.store.GetAll()
	if err != nil {
		return nil, fmt.Errorf("ctxengine: read history: %w", err)
	}
	out := make([]provider.LLMMessage, 0, len(history)+2)
	out = append(out, provider.LLMMessage{Role: provider.MessageRoleSystem, Content: systemPrompt})
	out = append(out, history...)
	out = append(out, provider.LLMMessage{Role: provider.MessageRoleUser, Content: newUserTurn})
	return out, nil
}
