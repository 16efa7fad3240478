package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/journal/internal/view"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the journal backend",
		Long:  "Sign in and keep the session token, username, and role for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username, err = promptValue(cmd, in, "Username", username); err != nil {
				return err
			}
			if password, err = promptValue(cmd, in, "Password", password); err != nil {
				return err
			}

			login := view.NewLogin(sess, client)
			route, err := login.Submit(cmd.Context(), username, password)
			if err != nil {
				logger.Debug("login failed", "username", username, "error", err)
				return errors.New(login.ErrorMessage())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", sess.Username(), sess.Role())
			if route == view.RouteAdmin {
				fmt.Fprintln(cmd.OutOrStdout(), "Admin commands are available: journal admin --help")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			username := sess.Username()
			if _, err := view.Logout(cmd.Context(), sess); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			if username == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s.\n", username)
			return nil
		},
	}
}

func newSignupCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username, err = promptValue(cmd, in, "Username", username); err != nil {
				return err
			}
			if email, err = promptValue(cmd, in, "Email", email); err != nil {
				return err
			}
			if password, err = promptValue(cmd, in, "Password", password); err != nil {
				return err
			}

			signup := view.NewSignup(client)
			if _, err := signup.Submit(cmd.Context(), username, email, password); err != nil {
				logger.Debug("signup failed", "username", username, "error", err)
				return errors.New(signup.Message())
			}
			fmt.Fprintln(cmd.OutOrStdout(), signup.Message())
			fmt.Fprintln(cmd.OutOrStdout(), "Next: journal login")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if omitted)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email (prompted if omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if omitted)")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSession(); err != nil {
				return err
			}
			rec := sess.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Username: %s\n", rec.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "Role:     %s\n", rec.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "Admin:    %t\n", rec.IsAdmin())
			fmt.Fprintf(cmd.OutOrStdout(), "Server:   %s\n", client.BaseURL())
			return nil
		},
	}
}
