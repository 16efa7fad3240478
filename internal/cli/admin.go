package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/me/journal/internal/view"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users (admins only)",
		Long:  "Manage users. The backend decides who may do this; a regular account gets a fetch error.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd); err != nil {
				return err
			}
			return requireSession()
		},
	}
	cmd.AddCommand(newAdminUsersCmd(), newAdminPromoteCmd(), newAdminDeleteUserCmd())
	return cmd
}

func newAdminUsersCmd() *cobra.Command {
	var (
		query    string
		journals bool
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users with their roles and entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := view.NewAdmin(sess, authed)
			if err := a.Load(cmd.Context()); err != nil {
				logger.Debug("user fetch failed", "error", err)
				return errors.New(a.Banner())
			}

			out := cmd.OutOrStdout()
			users := a.Filter(query)
			if len(users) == 0 {
				fmt.Fprintln(out, "No users found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLES\tSENTIMENT\tENTRIES")
			for _, u := range users {
				email := u.Email
				if email == "" {
					email = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\n",
					u.ID, u.Username, email, strings.Join(u.Roles, ","), u.SentimentAnalysis, len(u.JournalEntries))
			}
			tw.Flush()

			if journals {
				for _, u := range users {
					if len(u.JournalEntries) == 0 {
						continue
					}
					fmt.Fprintf(out, "\n%s (#%s)\n", u.Username, u.ShortID())
					printJournals(out, u.JournalEntries)
				}
			}
			fmt.Fprintf(out, "\n%s\n", countLabel(len(users), "user", "users"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "search", "q", "", "Only show usernames containing this text")
	cmd.Flags().BoolVar(&journals, "journals", false, "Also print each user's entries")
	return cmd
}

func newAdminPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <user-id>",
		Short: "Make a user an admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := view.NewAdmin(sess, authed)
			return adminAction(cmd, "promoted", args[0], a.Promote(cmd.Context(), args[0], confirmer(cmd)))
		},
	}
}

func newAdminDeleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <user-id>",
		Short: "Delete a user and their entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := view.NewAdmin(sess, authed)
			return adminAction(cmd, "deleted", args[0], a.DeleteUser(cmd.Context(), args[0], confirmer(cmd)))
		},
	}
}

func adminAction(cmd *cobra.Command, verb, id string, err error) error {
	switch {
	case errors.Is(err, view.ErrCancelled):
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	case err != nil:
		logger.Debug("admin action failed", "user_id", id, "error", err)
		return errors.New(view.MessageOf(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s %s.\n", id, verb)
	return nil
}
