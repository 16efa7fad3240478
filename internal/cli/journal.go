package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/journal/internal/view"
	"github.com/me/journal/pkg/model"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"j"},
		Short:   "Manage your journal entries",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd); err != nil {
				return err
			}
			return requireSession()
		},
	}
	cmd.AddCommand(
		newJournalListCmd(),
		newJournalAddCmd(),
		newJournalEditCmd(),
		newJournalDeleteCmd(),
	)
	return cmd
}

// loadDashboard fetches the signed-in user's entries.
func loadDashboard(cmd *cobra.Command) (*view.Dashboard, error) {
	d := view.NewDashboard(sess, authed)
	if err := d.Load(cmd.Context()); err != nil {
		logger.Debug("journal fetch failed", "error", err)
		return nil, errors.New(d.Banner())
	}
	return d, nil
}

func newJournalListCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, d.Welcome())
			journals := d.Filter(query)
			if len(journals) == 0 {
				if query != "" {
					fmt.Fprintf(out, "No journals match %q.\n", query)
				} else {
					fmt.Fprintln(out, "No journals yet. Add one with: journal journal add")
				}
				return nil
			}
			printJournals(out, journals)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "search", "q", "", "Only show entries whose title or content contains this text")
	return cmd
}

func printJournals(w io.Writer, journals []model.Journal) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tWRITTEN\tCONTENT")
	for _, j := range journals {
		written := "-"
		if !j.Date.IsZero() {
			written = humanize.Time(j.Date)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", j.ID, j.Title, written, preview(j.Content, 40))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s\n", countLabel(len(journals), "entry", "entries"))
}

func preview(s string, n int) string {
	return view.Truncate(strings.Join(strings.Fields(s), " "), n)
}

func countLabel(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return humanize.Comma(int64(n)) + " " + plural
}

func newJournalAddCmd() *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Write a new entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := view.NewDashboard(sess, authed)
			d.OpenAdd()
			saved, err := d.Save(cmd.Context(), model.JournalInput{Title: title, Content: content})
			if err != nil {
				logger.Debug("journal create failed", "error", err)
				return errors.New(view.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Journal saved: %s\n", saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Entry title (required)")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Entry text (required)")
	return cmd
}

func newJournalEditCmd() *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an entry's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			if err := d.OpenEdit(args[0]); err != nil {
				return err
			}

			in := d.Draft().Input()
			if cmd.Flags().Changed("title") {
				in.Title = title
			}
			if cmd.Flags().Changed("content") {
				in.Content = content
			}
			saved, err := d.Save(cmd.Context(), in)
			if err != nil {
				logger.Debug("journal update failed", "id", args[0], "error", err)
				return errors.New(view.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Journal updated: %s\n", saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "New text")
	return cmd
}

func newJournalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := view.NewDashboard(sess, authed)
			err := d.Delete(cmd.Context(), args[0], confirmer(cmd))
			switch {
			case errors.Is(err, view.ErrCancelled):
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			case err != nil:
				logger.Debug("journal delete failed", "id", args[0], "error", err)
				return errors.New(view.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Journal deleted: %s\n", args[0])
			return nil
		},
	}
}
