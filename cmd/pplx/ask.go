package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/pplx/internal/chat"
	"github.com/flemzord/pplx/internal/provider"
)

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noStream, _ := cmd.Flags().GetBool("no-stream")
			model, _ := cmd.Flags().GetString("model")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			msgs, err := a.newManager().BuildOutboundMessages(a.cfg.SystemPrompt, strings.Join(args, " "))
			if err != nil {
				return err
			}
			req := provider.CompletionRequest{Model: model, Messages: msgs}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			md := terminalMarkdown(out)
			var result provider.CompletionResult
			if noStream {
				result, err = a.client.Complete(ctx, req)
				if err == nil {
					printAnswer(out, md, result.Content)
				}
			} else {
				result, err = streamTo(ctx, out, a.client, req, md)
			}
			if err != nil {
				return err
			}

			printCitations(out, result.Citations)
			return nil
		},
	}
	cmd.Flags().Bool("no-stream", false, "Wait for the full answer instead of streaming")
	cmd.Flags().StringP("model", "m", "", "Model to use for this question")
	return cmd
}

// streamTo writes fragments as they arrive. With md set, the raw text is
// replaced by its rendered form once the answer is complete.
func streamTo(ctx context.Context, out io.Writer, p provider.Provider, req provider.CompletionRequest, md *chat.Markdown) (provider.CompletionResult, error) {
	s, err := p.Stream(ctx, req)
	if err != nil {
		return provider.CompletionResult{}, err
	}
	defer func() { _ = s.Close() }()

	var raw strings.Builder
	for s.Next() {
		_, _ = io.WriteString(out, s.Fragment())
		raw.WriteString(s.Fragment())
	}
	if err := s.Err(); err != nil {
		return provider.CompletionResult{}, err
	}
	_, _ = fmt.Fprintln(out)

	result := s.Result()
	if md != nil && raw.Len() > 0 {
		md.Replace(out, raw.String()+"\n", result.Content)
	}
	return result, nil
}

func printAnswer(out io.Writer, md *chat.Markdown, content string) {
	if md != nil {
		content = md.Render(content)
	}
	_, _ = fmt.Fprintln(out, content)
}

func printCitations(out io.Writer, urls []string) {
	if len(urls) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nSources:")
	for i, u := range urls {
		_, _ = fmt.Fprintf(out, "  [%d] %s\n", i+1, u)
	}
}
