package perplexity

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/pplx/internal/provider"
)

// scannerBufferSize is the max token size for the SSE line scanner.
// Default bufio.Scanner limit is ~64 KiB which is too small for long answers
// delivered in a single event.
const scannerBufferSize = 1 * 1024 * 1024 // 1 MB

const (
	eventPrefix  = "data: "
	doneSentinel = "[DONE]"
)

// errStreamClosed is reported when the caller closes a stream before it
// reached its natural end.
var errStreamClosed = errors.New("perplexity: stream closed before completion")

// lineKind classifies one line of the event stream.
type lineKind int

const (
	lineSkip      lineKind = iota // blank, heartbeat or non-data line
	lineDone                      // terminal sentinel
	lineMalformed                 // data line whose payload is not a valid event
	lineEvent                     // decoded event
)

// event is the useful part of one decoded data line.
type event struct {
	content      string
	citations    []string
	hasCitations bool
}

// decodeLine parses one raw line of the stream.
func decodeLine(line string) (event, lineKind) {
	if line == "" || !strings.HasPrefix(line, eventPrefix) {
		return event{}, lineSkip
	}

	payload := strings.TrimSpace(line[len(eventPrefix):])
	if payload == doneSentinel {
		return event{}, lineDone
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return event{}, lineMalformed
	}

	var ev event
	if chunk.Citations != nil {
		ev.hasCitations = true
		ev.citations = *chunk.Citations
	}
	if len(chunk.Choices) > 0 {
		ev.content = chunk.Choices[0].Delta.Content
	}
	return ev, lineEvent
}

// eventStream decodes a line-oriented event stream into content fragments.
// It owns the response body for its whole lifetime: the body is closed when
// the stream ends, fails, is closed by the caller, or its context is done.
type eventStream struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	ctx      context.Context
	stopCtx  func() bool
	logger   *slog.Logger
	observer Observer
	span     trace.Span
	model    string
	start    time.Time

	fragment  string
	content   strings.Builder
	citations []string
	err       error
	done      bool
	closeOnce sync.Once
}

// newEventStream wraps body. The context is watched so that a cancelled
// request unblocks a pending read.
func newEventStream(ctx context.Context, body io.ReadCloser, c *Client, model string, span trace.Span, start time.Time) *eventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)

	s := &eventStream{
		body:     body,
		scanner:  scanner,
		ctx:      ctx,
		logger:   c.logger,
		observer: c.observer,
		span:     span,
		model:    model,
		start:    start,
	}
	s.stopCtx = context.AfterFunc(ctx, func() { _ = s.closeBody() })
	return s
}

// Next advances to the next non-empty content fragment.
func (s *eventStream) Next() bool {
	if s.done {
		return false
	}

	for s.scanner.Scan() {
		ev, kind := decodeLine(s.scanner.Text())
		switch kind {
		case lineSkip:
			continue
		case lineDone:
			s.finish(nil)
			return false
		case lineMalformed:
			s.observer.IncMalformedEvent(s.model)
			s.logger.Debug("perplexity: skipping malformed event", "line", truncate(s.scanner.Text(), 120))
			continue
		}

		if ev.hasCitations {
			s.citations = ev.citations
		}
		if ev.content == "" {
			continue
		}
		s.fragment = ev.content
		s.content.WriteString(ev.content)
		return true
	}

	if err := s.ctx.Err(); err != nil {
		s.finish(err)
		return false
	}
	if err := s.scanner.Err(); err != nil {
		s.finish(mapConnectionError(err))
		return false
	}

	// The transport ended without a sentinel: still a natural termination.
	s.finish(nil)
	return false
}

// Fragment returns the fragment produced by the last successful Next.
func (s *eventStream) Fragment() string {
	return s.fragment
}

// Err returns the error that terminated the stream, if any.
func (s *eventStream) Err() error {
	return s.err
}

// Result returns the accumulated content and the last citation list.
// A stream that failed or was abandoned has no result.
func (s *eventStream) Result() provider.CompletionResult {
	if !s.done || s.err != nil {
		return provider.CompletionResult{}
	}
	citations := s.citations
	if citations == nil {
		citations = []string{}
	}
	return provider.CompletionResult{
		Content:   s.content.String(),
		Citations: citations,
	}
}

// Close releases the connection. Closing before the natural end discards
// everything gathered so far.
func (s *eventStream) Close() error {
	if !s.done {
		s.finish(errStreamClosed)
	}
	return nil
}

// finish records the terminal state exactly once and releases the body.
func (s *eventStream) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	s.err = err
	s.fragment = ""
	if err != nil {
		s.content.Reset()
		s.citations = nil
	}

	s.stopCtx()
	_ = s.closeBody()

	s.observer.ObserveRequest(s.model, true, err, time.Since(s.start))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()

	if err != nil && !errors.Is(err, errStreamClosed) {
		s.logger.Debug("perplexity: stream failed", "error", err)
	}
}

func (s *eventStream) closeBody() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

var _ provider.Stream = (*eventStream)(nil)
