package chat

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrInterrupted is returned by a Prompter when the user presses Ctrl-C.
var ErrInterrupted = errors.New("chat: interrupted")

// Choice is one entry of a selection prompt.
type Choice struct {
	Label string
	Value string
}

// Prompter reads user input. ReadLine returns io.EOF when input is
// exhausted and ErrInterrupted on Ctrl-C.
type Prompter interface {
	ReadLine(ctx context.Context) (string, error)
	Input(ctx context.Context, title, initial string) (string, error)
	Select(ctx context.Context, title string, choices []Choice, initial string) (string, error)
	Confirm(ctx context.Context, title string) (bool, error)
}

// HuhPrompter implements Prompter with huh forms. Accessible mode reads
// plain lines, which is what a piped stdin needs.
type HuhPrompter struct {
	In         io.Reader
	Out        io.Writer
	Accessible bool

	// lines is shared by every accessible form; each form is handed exactly
	// one line so input is never lost between prompts.
	lines *bufio.Reader
}

var _ Prompter = (*HuhPrompter)(nil)

// ReadLine shows the main input prompt.
func (p *HuhPrompter) ReadLine(ctx context.Context) (string, error) {
	var line string
	err := p.run(ctx, huh.NewInput().Prompt("❯ ").Value(&line))
	return line, err
}

// Input asks for a single line of text, prefilled with initial.
func (p *HuhPrompter) Input(ctx context.Context, title, initial string) (string, error) {
	value := initial
	err := p.run(ctx, huh.NewInput().Title(title).Value(&value))
	return value, err
}

// Select asks the user to pick one of choices.
func (p *HuhPrompter) Select(ctx context.Context, title string, choices []Choice, initial string) (string, error) {
	opts := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		opts[i] = huh.NewOption(c.Label, c.Value).Selected(c.Value == initial)
	}
	value := initial
	err := p.run(ctx, huh.NewSelect[string]().Title(title).Options(opts...).Value(&value), func(line string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(line))
		return err == nil && n >= 1 && n <= len(choices)
	})
	return value, err
}

// Confirm asks a yes/no question.
func (p *HuhPrompter) Confirm(ctx context.Context, title string) (bool, error) {
	var ok bool
	err := p.run(ctx, huh.NewConfirm().Title(title).Value(&ok))
	return ok, err
}

// run shows field in a single-field form. In accessible mode, valid
// reports whether the line can be handed to the field; a rejected line is
// replaced by an empty one so the field keeps its current value.
func (p *HuhPrompter) run(ctx context.Context, field huh.Field, valid ...func(string) bool) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithAccessible(p.Accessible)
	if p.Accessible {
		line, err := p.nextLine()
		if err != nil {
			return err
		}
		for _, ok := range valid {
			if !ok(line) {
				line = ""
			}
		}
		form = form.WithInput(strings.NewReader(line + "\n"))
	} else if p.In != nil {
		form = form.WithInput(p.In)
	}
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}

	err := form.RunWithContext(ctx)
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		return ErrInterrupted
	case errors.Is(err, io.ErrUnexpectedEOF):
		return io.EOF
	}
	return err
}

// nextLine reads one line for an accessible form. It returns io.EOF once
// the input is exhausted; a final line without a newline is still returned.
func (p *HuhPrompter) nextLine() (string, error) {
	if p.lines == nil {
		in := p.In
		if in == nil {
			in = os.Stdin
		}
		p.lines = bufio.NewReader(in)
	}

	line, err := p.lines.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF):
		if line == "" {
			return "", io.EOF
		}
	case err != nil:
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
