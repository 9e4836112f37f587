package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type command struct {
	name string
	help string
	run  func(r *REPL, ctx context.Context) (keepGoing bool, err error)
}

// commandTable lists the slash commands in /help order.
func commandTable() []command {
	return []command{
		{"/new", "Start new conversation", func(r *REPL, _ context.Context) (bool, error) {
			return true, r.reset("Started new conversation.")
		}},
		{"/save", "Save current session", (*REPL).cmdSave},
		{"/load", "Load previous session", (*REPL).cmdLoad},
		{"/clear", "Clear conversation history", func(r *REPL, _ context.Context) (bool, error) {
			return true, r.reset("Conversation history cleared.")
		}},
		{"/model", "Switch model", (*REPL).cmdModel},
		{"/system", "Set system prompt", (*REPL).cmdSystem},
		{"/sessions", "List saved sessions", (*REPL).cmdSessions},
		{"/help", "Show available commands", func(r *REPL, _ context.Context) (bool, error) {
			r.help()
			return true, nil
		}},
		{"/exit", "Exit the CLI", func(r *REPL, _ context.Context) (bool, error) {
			r.exit()
			return false, nil
		}},
	}
}

var errNoSessionStore = errors.New("session storage is not configured")

// command dispatches a slash command and reports whether the loop should
// continue.
func (r *REPL) command(ctx context.Context, line string) bool {
	name := strings.ToLower(strings.Fields(line)[0])
	commands := commandTable()
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		r.println(r.style.warn.Render("Unknown command: " + name))
		r.println(r.style.dim.Render("Type /help for available commands."))
		return true
	}

	keepGoing, err := commands[i].run(r, ctx)
	switch {
	case errors.Is(err, ErrInterrupted):
		r.println(r.style.dim.Render("Canceled."))
	case err != nil:
		r.println(r.style.err.Render("Error: " + err.Error()))
	}
	return keepGoing
}

func (r *REPL) help() {
	r.println("")
	r.println(r.style.title.Render("Available Commands:"))
	for _, c := range commandTable() {
		r.println("  " + r.style.command.Render(c.name) + " - " + c.help)
	}
	r.println("")
}

func (r *REPL) reset(msg string) error {
	if err := r.manager.Reset(); err != nil {
		return err
	}
	r.createdAt = r.now()
	r.println(r.style.ok.Render(msg))
	return nil
}

func (r *REPL) cmdSave(ctx context.Context) (bool, error) {
	if r.sessions == nil {
		return true, errNoSessionStore
	}
	name, err := r.prompter.Input(ctx, "Session name (leave empty for timestamp):", "")
	if err != nil {
		return true, err
	}
	stored, err := r.save(strings.TrimSpace(name))
	if err != nil {
		return true, err
	}
	r.println(r.style.ok.Render("Session saved to " + stored))
	return true, nil
}

func (r *REPL) cmdLoad(ctx context.Context) (bool, error) {
	if r.sessions == nil {
		return true, errNoSessionStore
	}
	infos, err := r.sessions.List()
	if err != nil {
		return true, err
	}
	if len(infos) == 0 {
		r.println(r.style.warn.Render("No saved sessions found."))
		return true, nil
	}

	choices := make([]Choice, len(infos))
	for i, info := range infos {
		choices[i] = Choice{
			Label: fmt.Sprintf("%s (%d messages) - %s", info.Name, info.MessageCount, info.Preview),
			Value: info.Name,
		}
	}
	selected, err := r.prompter.Select(ctx, "Select session to load:", choices, infos[0].Name)
	if err != nil {
		return true, err
	}

	sess, err := r.sessions.Load(selected)
	if err != nil {
		return true, fmt.Errorf("failed to load session %s: %w", selected, err)
	}
	if err := r.manager.Load(sess.Messages); err != nil {
		return true, err
	}
	r.createdAt = sess.CreatedAt
	if sess.Model != "" && (len(r.models) == 0 || slices.Contains(r.models, sess.Model)) {
		r.settings.Model = sess.Model
	}
	r.println(r.style.ok.Render("Loaded session: " + selected))
	return true, nil
}

func (r *REPL) cmdSessions(context.Context) (bool, error) {
	if r.sessions == nil {
		return true, errNoSessionStore
	}
	infos, err := r.sessions.List()
	if err != nil {
		return true, err
	}
	if len(infos) == 0 {
		r.println(r.style.warn.Render("No saved sessions found."))
		return true, nil
	}
	r.println("")
	r.println(r.style.title.Render("Saved Sessions:"))
	for _, info := range infos {
		r.println(fmt.Sprintf("  %s - %d messages - %s",
			r.style.command.Render(info.Name), info.MessageCount, r.style.dim.Render(info.Preview)))
	}
	r.println("")
	return true, nil
}

func (r *REPL) cmdModel(ctx context.Context) (bool, error) {
	if len(r.models) == 0 {
		return true, errors.New("no models available")
	}
	choices := make([]Choice, len(r.models))
	for i, m := range r.models {
		choices[i] = Choice{Label: m, Value: m}
	}
	selected, err := r.prompter.Select(ctx, "Select model:", choices, r.settings.Model)
	if err != nil {
		return true, err
	}
	r.settings.Model = selected
	r.println(r.style.ok.Render("Model switched to " + selected))
	return true, r.offerPersist(ctx)
}

func (r *REPL) cmdSystem(ctx context.Context) (bool, error) {
	prompt, err := r.prompter.Input(ctx, "Enter system prompt:", r.settings.SystemPrompt)
	if err != nil {
		return true, err
	}
	r.settings.SystemPrompt = prompt
	r.println(r.style.ok.Render("System prompt updated."))
	return true, r.offerPersist(ctx)
}

func (r *REPL) offerPersist(ctx context.Context) error {
	if r.persist == nil {
		return nil
	}
	ok, err := r.prompter.Confirm(ctx, "Save as default in config?")
	if err != nil || !ok {
		return err
	}
	if err := r.persist(r.settings); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	r.println(r.style.ok.Render("Config updated."))
	return nil
}
