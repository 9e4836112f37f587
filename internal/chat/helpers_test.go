package chat_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/pplx/internal/chat"
	ctxengine "github.com/flemzord/pplx/internal/context"
	"github.com/flemzord/pplx/internal/provider"
	"github.com/flemzord/pplx/internal/provider/providertest"
	"github.com/flemzord/pplx/internal/session"
)

type lineStep struct {
	text string
	err  error
}

// scriptedPrompter replays canned answers. ReadLine returns io.EOF once the
// script runs out.
type scriptedPrompter struct {
	lines    []lineStep
	inputs   []string
	selects  []string
	confirms []bool

	titles []string
}

func (p *scriptedPrompter) ReadLine(context.Context) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	step := p.lines[0]
	p.lines = p.lines[1:]
	return step.text, step.err
}

func (p *scriptedPrompter) Input(_ context.Context, title, initial string) (string, error) {
	p.titles = append(p.titles, title)
	if len(p.inputs) == 0 {
		return initial, nil
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	return v, nil
}

func (p *scriptedPrompter) Select(_ context.Context, title string, _ []chat.Choice, initial string) (string, error) {
	p.titles = append(p.titles, title)
	if len(p.selects) == 0 {
		return initial, nil
	}
	v := p.selects[0]
	p.selects = p.selects[1:]
	return v, nil
}

func (p *scriptedPrompter) Confirm(_ context.Context, title string) (bool, error) {
	p.titles = append(p.titles, title)
	if len(p.confirms) == 0 {
		return false, nil
	}
	v := p.confirms[0]
	p.confirms = p.confirms[1:]
	return v, nil
}

func lines(texts ...string) []lineStep {
	steps := make([]lineStep, len(texts))
	for i, t := range texts {
		steps[i] = lineStep{text: t}
	}
	return steps
}

// answering returns a mock that streams fragments for every request.
func answering(fragments []string, citations []string) *providertest.MockProvider {
	return &providertest.MockProvider{
		StreamFunc: func(context.Context, provider.CompletionRequest) (provider.Stream, error) {
			return providertest.NewSliceStream(fragments, citations), nil
		},
		ModelNameFunc: func() string { return "sonar-pro" },
	}
}

type fixture struct {
	repl     *chat.REPL
	out      *bytes.Buffer
	manager  *ctxengine.Manager
	prompter *scriptedPrompter
	store    *session.FileStore
}

type fixtureOption func(*chat.Options)

func newFixture(t *testing.T, p provider.Provider, summarizer ctxengine.Summarizer, prompter *scriptedPrompter, opts ...fixtureOption) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := session.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}
	if prompter == nil {
		prompter = &scriptedPrompter{}
	}

	out := &bytes.Buffer{}
	manager := ctxengine.NewManager(nil, ctxengine.CharEstimator{}, summarizer, ctxengine.WithLogger(logger))
	o := chat.Options{
		Provider: p,
		Manager:  manager,
		Sessions: store,
		Prompter: prompter,
		Out:      out,
		Logger:   logger,
		Settings: chat.Settings{
			Model:        "sonar-pro",
			SystemPrompt: "sys",
			Budget:       1000,
		},
		Models: []string{"sonar", "sonar-pro"},
		Interrupts: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
		Now: func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := chat.New(o)
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}
	return &fixture{repl: r, out: out, manager: manager, prompter: prompter, store: store}
}

func (f *fixture) history(t *testing.T) []provider.LLMMessage {
	t.Helper()
	msgs, err := f.manager.Messages()
	if err != nil {
		t.Fatal(err)
	}
	return msgs
}
