package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flemzord/pplx/internal/session"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved conversations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved sessions, most recent first",
			Args:  cobra.NoArgs,
			RunE: withSessions(func(cmd *cobra.Command, store session.Store, _ []string) error {
				infos, err := store.List()
				if err != nil {
					return err
				}
				if len(infos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions found.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSAVED\tMODEL\tMESSAGES\tPREVIEW")
				for _, i := range infos {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						i.Name, i.SavedAt.Local().Format("2006-01-02 15:04"), i.Model, i.MessageCount, i.Preview)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Print a saved session",
			Args:  cobra.ExactArgs(1),
			RunE: withSessions(func(cmd *cobra.Command, store session.Store, args []string) error {
				sess, err := store.Load(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "model: %s\ncreated: %s\nsaved: %s\n\n",
					sess.Model, sess.CreatedAt.Local().Format("2006-01-02 15:04:05"), sess.SavedAt.Local().Format("2006-01-02 15:04:05"))
				for _, m := range sess.Messages {
					fmt.Fprintf(out, "%s: %s\n\n", m.Role, m.Content)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a saved session",
			Args:  cobra.ExactArgs(1),
			RunE: withSessions(func(cmd *cobra.Command, store session.Store, args []string) error {
				if err := store.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

// withSessions opens the configured store without requiring an API key.
func withSessions(fn func(*cobra.Command, session.Store, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		store, err := a.openSessions(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, store, args)
	}
}
