package perplexity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	mu        sync.Mutex
	requests  int
	errs      []error
	malformed int
}

func (o *recordingObserver) ObserveRequest(_ string, _ bool, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests++
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) IncMalformedEvent(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.malformed++
}

// trackingBody is an io.ReadCloser that remembers whether it was closed.
type trackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *trackingBody) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// failingReader yields data and then a read error.
type failingReader struct {
	data string
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

var errConnReset = errors.New("connection reset by peer")

func newBareClient(obs Observer) *Client {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Client{
		config:   Config{Model: "sonar", APIKey: "pplx-test"},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: obs,
	}
}

// newLineStream builds a decoder over the given lines joined by "\n".
func newLineStream(t *testing.T, c *Client, body io.ReadCloser) *eventStream {
	t.Helper()
	span := trace.SpanFromContext(context.Background())
	s := newEventStream(context.Background(), body, c, c.config.Model, span, time.Now())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func linesBody(lines ...string) *trackingBody {
	return &trackingBody{Reader: strings.NewReader(strings.Join(lines, "\n") + "\n")}
}

// drain collects every fragment of s.
func drain(s *eventStream) []string {
	var out []string
	for s.Next() {
		out = append(out, s.Fragment())
	}
	return out
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:  "pplx-test",
		Model:   "sonar",
		BaseURL: srv.URL,
	}, WithHTTPClient(srv.Client()), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readRequestBody(t *testing.T, r *http.Request) chatRequest {
	t.Helper()
	body, _ := io.ReadAll(r.Body)
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Errorf("invalid request body: %v", err)
	}
	return req
}

func writeSSE(t *testing.T, w http.ResponseWriter, lines []string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)

	for _, l := range lines {
		if _, err := w.Write([]byte(l + "\n")); err != nil {
			t.Errorf("failed to write SSE line: %v", err)
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
