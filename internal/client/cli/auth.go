package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"user-management-api/internal/client/api"
	"user-management-api/internal/client/session"
)

func newSignupCmd(app *App) *cobra.Command {
	var form api.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Example: `  userctl signup --first-name Ada --last-name Lovelace --email ada@example.com
  (the password is prompted for when --password is omitted)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := app.passwordFlag(cmd, form.Password)
			if err != nil {
				return err
			}
			form.Password = pw

			u, err := app.Session.Signup(cmd.Context(), form)
			if err != nil {
				app.Log.Debug("signup failed", zap.Error(err))
				return fail(err, "Registration failed")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s %s <%s>\n", u.FirstName, u.LastName, u.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&form.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone (optional)")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in and save the session token",
		Example: "  userctl login --email ada@example.com",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := app.passwordFlag(cmd, password)
			if err != nil {
				return err
			}

			u, err := app.Session.Login(cmd.Context(), email, pw)
			if err != nil {
				app.Log.Debug("login failed", zap.Error(err))
				return fail(err, "Login failed")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s %s <%s>\n", u.FirstName, u.LastName, u.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := app.Session.Restore(cmd.Context())
			if err != nil {
				app.Log.Debug("restore before logout failed", zap.Error(err))
			}

			if state == session.Authenticated {
				err = app.Session.Logout()
			} else {
				err = app.Store.Clear()
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(cmd.Context()); err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), app.Session.User())
			return nil
		},
	}
}
