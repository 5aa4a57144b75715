// Package cli implements userctl, the command line client for the user
// management API.
//
// Credentials from login or signup are kept in ~/.usermgmt/credentials.json
// and checked against the server before every command that needs them.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"user-management-api/internal/client/api"
	"user-management-api/internal/client/session"
	"user-management-api/pkg/logger"
)

const defaultServerURL = "http://localhost:8080"

// App holds the state shared by all commands of one invocation.
type App struct {
	ServerURL string
	CredsPath string
	Verbose   bool

	Client  *api.Client
	Store   *session.CredentialStore
	Session *session.Session
	Log     *zap.Logger

	in *bufio.Reader
}

// init builds the collaborators once flags are parsed.
func (a *App) init(cmd *cobra.Command) error {
	log := zap.NewNop()
	if a.Verbose {
		l, err := logger.NewWithConfig(logger.Config{
			Level:       "debug",
			Format:      "console",
			OutputPath:  "stderr",
			ServiceName: "userctl",
		})
		if err != nil {
			return err
		}
		log = l
	}
	a.Log = log

	if a.CredsPath == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return err
		}
		a.CredsPath = p
	}

	a.Client = newAPIClient(a.ServerURL)
	a.Store = session.NewCredentialStore(a.CredsPath)
	a.Session = session.New(a.Client, a.Store, a.Log)
	a.in = bufio.NewReader(cmd.InOrStdin())
	return nil
}

// requireLogin restores the saved session and fails unless it is valid.
func (a *App) requireLogin(ctx context.Context) error {
	if _, err := a.Session.Restore(ctx); err != nil {
		a.Log.Debug("restore session failed", zap.Error(err))
		return fail(err, "Failed to restore session")
	}
	if err := a.Session.RequireAuthenticated(); err != nil {
		return fmt.Errorf("%w (run: userctl login)", err)
	}
	return nil
}

// fail turns err into what the user sees: the server's message when it sent
// one, otherwise fallback.
func fail(err error, fallback string) error {
	return errors.New(api.Message(err, fallback))
}

// NewRootCmd creates the userctl command tree.
func NewRootCmd(version string) *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "userctl",
		Short:         "Manage users of the user management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", envOr("USERCTL_SERVER", defaultServerURL), "API base URL")
	cmd.PersistentFlags().StringVar(&app.CredsPath, "credentials", "", "credentials file (default ~/.usermgmt/credentials.json)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

// Execute runs the command tree and exits non-zero on error.
func Execute(ctx context.Context, version string) {
	if err := run(ctx, NewRootCmd(version), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command, args []string, in io.Reader, out, errOut io.Writer) error {
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(errOut, "Error:", err)
	}
	return err
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		// no credentials needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "userctl %s\n", version)
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
