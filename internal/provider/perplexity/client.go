package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/pplx/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
// Protects against OOM from malformed or huge responses.
const maxResponseSize = 10 * 1024 * 1024

const completionsPath = "/chat/completions"

// summarizeInstruction is the fixed system prompt of the summarization call.
const summarizeInstruction = "Summarize the following conversation concisely, preserving key context and facts."

// buildChatRequest creates a wire request, merging request-level overrides
// with config defaults.
func (c *Client) buildChatRequest(req provider.CompletionRequest, stream bool) chatRequest {
	cr := chatRequest{
		Model:    c.config.Model,
		Messages: toMessages(req.Messages),
		Stream:   stream,
	}
	if req.Model != "" {
		cr.Model = req.Model
	}

	switch {
	case req.MaxTokens > 0:
		cr.MaxTokens = req.MaxTokens
	case c.config.MaxTokens > 0:
		cr.MaxTokens = c.config.MaxTokens
	}

	return cr
}

// newHTTPRequest creates an authenticated HTTP request.
func (c *Client) newHTTPRequest(ctx context.Context, payload chatRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("perplexity: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("perplexity: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	return httpReq, nil
}

func (c *Client) startSpan(ctx context.Context, name string, cr chatRequest) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("llm.model", cr.Model),
		attribute.Bool("llm.stream", cr.Stream),
		attribute.Int("llm.messages", len(cr.Messages)),
	))
}

// Complete sends a non-streaming completion request and returns the first
// choice's content with the citation list.
func (c *Client) Complete(ctx context.Context, req provider.CompletionRequest) (result provider.CompletionResult, err error) {
	cr := c.buildChatRequest(req, false)

	ctx, span := c.startSpan(ctx, "perplexity.complete", cr)
	start := time.Now()
	defer func() {
		c.observer.ObserveRequest(cr.Model, false, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	httpReq, err := c.newHTTPRequest(ctx, cr)
	if err != nil {
		return provider.CompletionResult{}, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return provider.CompletionResult{}, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.CompletionResult{}, mapConnectionError(fmt.Errorf("perplexity: read response: %w", err))
	}

	if httpErr := mapHTTPError(resp.StatusCode, body); httpErr != nil {
		return provider.CompletionResult{}, httpErr
	}

	var cresp chatResponse
	if err := json.Unmarshal(body, &cresp); err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: perplexity: unmarshal response: %w", provider.ErrTransport, err)
	}

	return fromResponse(&cresp), nil
}

// Stream sends a streaming completion request. Connection errors and
// non-success statuses are returned before any fragment is produced.
func (c *Client) Stream(ctx context.Context, req provider.CompletionRequest) (provider.Stream, error) {
	cr := c.buildChatRequest(req, true)

	ctx, span := c.startSpan(ctx, "perplexity.stream", cr)
	start := time.Now()
	fail := func(err error) (provider.Stream, error) {
		c.observer.ObserveRequest(cr.Model, true, err, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	httpReq, err := c.newHTTPRequest(ctx, cr)
	if err != nil {
		return fail(err)
	}

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return fail(mapConnectionError(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return fail(mapHTTPError(resp.StatusCode, body))
	}

	return newEventStream(ctx, resp.Body, c, cr.Model, span, start), nil
}

// Summarize condenses a conversation transcript with a non-streaming call.
// An empty reply is a valid, empty summary.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	result, err := c.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: summarizeInstruction},
			{Role: provider.MessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("perplexity: summarize: %w", err)
	}
	return result.Content, nil
}
