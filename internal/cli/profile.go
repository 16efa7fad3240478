package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/journal/internal/view"
	"github.com/me/journal/pkg/model"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change or delete your account",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd); err != nil {
				return err
			}
			return requireSession()
		},
	}
	cmd.AddCommand(newProfileUpdateCmd(), newProfileDeleteCmd())
	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	var p model.Profile

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update username, password, email, or sentiment analysis",
		Long: "Update your profile. The backend replaces the whole profile, so the " +
			"username defaults to the current one and empty fields are sent empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(p.Username) == "" {
				p.Username = sess.Username()
			}
			d := view.NewDashboard(sess, authed)
			if err := d.UpdateProfile(cmd.Context(), p); err != nil {
				logger.Debug("profile update failed", "error", err)
				return errors.New(view.MessageOf(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile updated successfully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&p.Username, "username", "u", "", "New username")
	cmd.Flags().StringVarP(&p.Password, "password", "p", "", "New password")
	cmd.Flags().StringVarP(&p.Email, "email", "e", "", "New email")
	cmd.Flags().BoolVar(&p.SentimentAnalysis, "sentiment-analysis", false, "Enable sentiment analysis of entries")
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete your account and sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			username := sess.Username()
			d := view.NewDashboard(sess, authed)
			_, err := d.DeleteProfile(cmd.Context(), confirmer(cmd))
			switch {
			case errors.Is(err, view.ErrCancelled):
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			case err != nil:
				logger.Debug("profile delete failed", "error", err)
				return errors.New(view.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s deleted. You are logged out.\n", username)
			return nil
		},
	}
}
