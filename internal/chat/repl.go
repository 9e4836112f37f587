// Package chat implements the interactive conversation loop: it reads user
// turns, keeps the history under budget, streams answers to the terminal,
// and handles slash commands.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	ctxengine "github.com/flemzord/pplx/internal/context"
	"github.com/flemzord/pplx/internal/provider"
	"github.com/flemzord/pplx/internal/session"
)

// Settings are the user-adjustable values of a conversation.
type Settings struct {
	Model        string
	SystemPrompt string

	// Budget is the history token count above which older turns are
	// summarized before the next request.
	Budget int

	AutoSave bool
}

// Options wires a REPL to its collaborators.
type Options struct {
	Provider provider.Provider
	Manager  *ctxengine.Manager
	Sessions session.Store
	Prompter Prompter
	Out      io.Writer
	Logger   *slog.Logger

	Settings Settings

	// Models are offered by /model.
	Models []string

	// Persist, when set, is offered after /model or /system to store the
	// new settings as defaults.
	Persist func(Settings) error

	// Interrupts derives the context of one turn. It defaults to a context
	// canceled by SIGINT, so Ctrl-C aborts the in-flight request.
	Interrupts func(context.Context) (context.Context, context.CancelFunc)

	// Now defaults to time.Now.
	Now func() time.Time

	// Markdown, when set, re-renders each answer once it has streamed. It
	// rewrites the output in place, so only set it for a terminal.
	Markdown *Markdown
}

// REPL is one interactive conversation. It is not safe for concurrent use.
type REPL struct {
	provider   provider.Provider
	manager    *ctxengine.Manager
	sessions   session.Store
	prompter   Prompter
	out        io.Writer
	logger     *slog.Logger
	settings   Settings
	models     []string
	persist    func(Settings) error
	interrupts func(context.Context) (context.Context, context.CancelFunc)
	now        func() time.Time
	markdown   *Markdown
	style      styles

	// createdAt is the start of the current conversation, kept across saves.
	createdAt time.Time
}

// New validates opts and returns a REPL.
func New(opts Options) (*REPL, error) {
	var errs []error
	if opts.Provider == nil {
		errs = append(errs, errors.New("chat: provider is required"))
	}
	if opts.Manager == nil {
		errs = append(errs, errors.New("chat: context manager is required"))
	}
	if opts.Prompter == nil {
		errs = append(errs, errors.New("chat: prompter is required"))
	}
	if opts.Settings.Budget <= 0 {
		errs = append(errs, fmt.Errorf("chat: budget must be positive, got %d", opts.Settings.Budget))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	r := &REPL{
		provider:   opts.Provider,
		manager:    opts.Manager,
		sessions:   opts.Sessions,
		prompter:   opts.Prompter,
		out:        opts.Out,
		logger:     opts.Logger,
		settings:   opts.Settings,
		models:     opts.Models,
		persist:    opts.Persist,
		interrupts: opts.Interrupts,
		now:        opts.Now,
		markdown:   opts.Markdown,
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.interrupts == nil {
		r.interrupts = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.settings.Model == "" {
		r.settings.Model = r.provider.ModelName()
	}
	r.style = newStyles(lipgloss.NewRenderer(r.out))
	r.createdAt = r.now()
	return r, nil
}

// Settings returns the current settings, including changes made by
// /model and /system.
func (r *REPL) Settings() Settings {
	return r.settings
}

// Run reads turns until /exit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.prompter.ReadLine(ctx)
		switch {
		case errors.Is(err, ErrInterrupted):
			r.println(r.style.dim.Render("Use /exit to quit."))
			continue
		case errors.Is(err, io.EOF):
			r.exit()
			return nil
		case err != nil:
			return fmt.Errorf("chat: read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if !r.command(ctx, line) {
				return nil
			}
			continue
		}

		if err := r.Turn(ctx, line); err != nil {
			r.reportError(err)
		}
	}
}

// Turn runs one question and answer round:
//
//  1. compress the history if it is over budget
//  2. build the outbound messages from the system prompt, history and input
//  3. stream the answer to the output
//  4. append the user turn and the answer to the history
//
// The history only changes after the stream finished cleanly, so an
// interrupted or failed request leaves it as it was. A summarization failure
// is reported and the turn continues with the full history.
func (r *REPL) Turn(ctx context.Context, input string) error {
	ctx, stop := r.interrupts(ctx)
	defer stop()

	outcome := r.manager.CompressIfNeeded(ctx, r.settings.Budget)
	switch {
	case outcome.Status == ctxengine.CompressDone:
		r.println(r.style.dim.Render(fmt.Sprintf("Context summarized (~%d -> ~%d tokens).", outcome.TokensBefore, outcome.TokensAfter)))
	case outcome.Failed():
		if ctx.Err() != nil {
			r.println(r.style.dim.Render("Interrupted."))
			return nil
		}
		r.println(r.style.warn.Render("Warning: could not summarize: " + outcome.Err.Error()))
	}

	msgs, err := r.manager.BuildOutboundMessages(r.settings.SystemPrompt, input)
	if err != nil {
		return err
	}

	result, err := r.stream(ctx, msgs)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			r.println(r.style.dim.Render("Response interrupted."))
			return nil
		}
		return err
	}

	if err := r.manager.Append(provider.MessageRoleUser, input); err != nil {
		return err
	}
	if err := r.manager.Append(provider.MessageRoleAssistant, result.Content); err != nil {
		return err
	}

	r.citations(result.Citations)
	r.println(r.style.dim.Render(fmt.Sprintf("~%d/%d tokens", r.manager.HistoryTokens(), r.settings.Budget)))
	return nil
}

// stream renders fragments as they arrive and returns the final result.
func (r *REPL) stream(ctx context.Context, msgs []provider.LLMMessage) (provider.CompletionResult, error) {
	s, err := r.provider.Stream(ctx, provider.CompletionRequest{Model: r.settings.Model, Messages: msgs})
	if err != nil {
		return provider.CompletionResult{}, err
	}
	defer func() { _ = s.Close() }()

	r.println("")
	var raw strings.Builder
	for s.Next() {
		_, _ = io.WriteString(r.out, s.Fragment())
		raw.WriteString(s.Fragment())
	}
	if raw.Len() > 0 {
		r.println("")
	}
	if err := s.Err(); err != nil {
		return provider.CompletionResult{}, err
	}

	result := s.Result()
	if result.Empty() {
		r.println(r.style.dim.Render("(empty response)"))
		return result, nil
	}
	if r.markdown != nil && raw.Len() > 0 {
		r.markdown.Replace(r.out, raw.String()+"\n", result.Content)
	}
	return result, nil
}

func (r *REPL) citations(urls []string) {
	if len(urls) == 0 {
		return
	}
	r.println("")
	r.println(r.style.title.Render("Sources:"))
	for i, u := range urls {
		r.println(fmt.Sprintf("  [%d] %s", i+1, r.style.cite.Render(u)))
	}
}

func (r *REPL) banner() {
	body := r.style.title.Render("Perplexity CLI") + "\n" +
		"Interactive search with real-time AI responses\n\n" +
		r.style.dim.Render("Model: "+r.settings.Model) + "\n" +
		r.style.dim.Render("Type /help for available commands")
	r.println(r.style.banner.Render(body))
}

// exit auto-saves when enabled and prints the farewell.
func (r *REPL) exit() {
	if r.settings.AutoSave && r.sessions != nil && r.manager.Len() > 0 {
		name, err := r.save("")
		if err != nil {
			r.println(r.style.err.Render("Auto-save failed: " + err.Error()))
		} else {
			r.println(r.style.ok.Render("Session auto-saved to " + name))
		}
	}
	r.println(r.style.dim.Render("Goodbye!"))
}

func (r *REPL) save(name string) (string, error) {
	msgs, err := r.manager.Messages()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = session.DefaultName(r.now())
	}
	return r.sessions.Save(name, session.Session{
		CreatedAt: r.createdAt,
		Model:     r.settings.Model,
		Messages:  msgs,
	})
}

// reportError prints a failed turn. Transient endpoint errors get a hint
// that the same question can simply be asked again.
func (r *REPL) reportError(err error) {
	r.println(r.style.err.Render("Error: " + err.Error()))
	if provider.IsRetryable(err) {
		r.println(r.style.dim.Render("The service is busy or unavailable; try again in a moment."))
	}
}

func (r *REPL) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}
