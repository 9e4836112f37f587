package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/flemzord/pplx/internal/chat"
	"github.com/flemzord/pplx/internal/config"
	"github.com/flemzord/pplx/internal/provider/perplexity"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation (default)",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openSessions(cmd.Context())
	if err != nil {
		return err
	}

	repl, err := chat.New(chat.Options{
		Provider: a.client,
		Manager:  a.newManager(),
		Sessions: store,
		Prompter: &chat.HuhPrompter{
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
			Accessible: !term.IsTerminal(int(os.Stdin.Fd())),
		},
		Out:    cmd.OutOrStdout(),
		Logger: a.logger,
		Settings: chat.Settings{
			Model:        a.cfg.Model,
			SystemPrompt: a.cfg.SystemPrompt,
			Budget:       a.cfg.InputTokenLimit,
			AutoSave:     a.cfg.AutoSave,
		},
		Models:   perplexity.Models,
		Persist:  a.persistSettings,
		Markdown: terminalMarkdown(cmd.OutOrStdout()),
	})
	if err != nil {
		return err
	}
	return repl.Run(cmd.Context())
}

// terminalMarkdown returns an answer renderer when out is a terminal and
// nil otherwise, so piped output stays raw.
func terminalMarkdown(out io.Writer) *chat.Markdown {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 0
	}
	return chat.NewMarkdown(lipgloss.NewRenderer(f), width)
}

// persistSettings patches the REPL's model and system prompt into the
// config file. Other keys stay as written, so placeholders like ${VAR} and
// ~ survive.
func (a *app) persistSettings(s chat.Settings) error {
	err := config.Patch(a.cfgPath, map[string]string{
		"model":         s.Model,
		"system_prompt": s.SystemPrompt,
	})
	if err != nil {
		return err
	}
	a.cfg.Model = s.Model
	a.cfg.SystemPrompt = s.SystemPrompt
	return nil
}
