package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"user-management-api/internal/client/api"
	"user-management-api/internal/client/view"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, add, edit and delete users",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return err
			}
			return app.requireLogin(cmd.Context())
		},
	}

	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersGetCmd(app))
	cmd.AddCommand(newUsersAddCmd(app))
	cmd.AddCommand(newUsersEditCmd(app))
	cmd.AddCommand(newUsersDeleteCmd(app))

	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var (
		search string
		sortBy string
		desc   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "Show all users",
		Example: "  userctl users list --search ada --sort email --desc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := view.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			var cfg view.SortConfig
			if key != view.SortNone {
				cfg = cfg.Toggle(key)
				if desc {
					cfg = cfg.Toggle(key)
				}
			}

			token := app.Session.Token()
			loader := view.NewLoader(func(ctx context.Context) ([]api.User, error) {
				return app.Client.ListUsers(ctx, token)
			})
			defer loader.Close()

			var (
				users    []api.User
				fetchErr error
			)
			loader.Load(cmd.Context(), func(v []api.User, err error) {
				users, fetchErr = v, err
			})
			if fetchErr != nil {
				app.Log.Debug("list users failed", zap.Error(fetchErr))
				return fail(fetchErr, "Failed to fetch users")
			}

			rows := view.Table{Users: users}.Rows(search, cfg)
			return printRows(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name or email")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by firstName, lastName, phone, email or createdDate")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")

	return cmd
}

func newUsersGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := app.Client.GetUser(cmd.Context(), app.Session.Token(), args[0])
			if err != nil {
				app.Log.Debug("get user failed", zap.Error(err))
				return fail(err, "Failed to fetch user")
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newUsersAddCmd(app *App) *cobra.Command {
	var form api.CreateUserRequest

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a new user",
		Example: "  userctl users add --first-name Grace --last-name Hopper --email grace@example.com --phone 5550100",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := app.passwordFlag(cmd, form.Password)
			if err != nil {
				return err
			}
			form.Password = pw

			u, err := app.Client.CreateUser(cmd.Context(), app.Session.Token(), form)
			if err != nil {
				app.Log.Debug("create user failed", zap.Error(err))
				return fail(err, "Failed to create user")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User created successfully (id %s)\n", u.ID)
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

func newUsersEditCmd(app *App) *cobra.Command {
	var firstName, lastName, email, phone string

	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Change a user's name, email or phone",
		Long:    "Only the flags given are changed; the rest keep their current values.",
		Example: "  userctl users edit 665f1c2e9b1d8a0012345678 --phone 5550199",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, token, id := cmd.Context(), app.Session.Token(), args[0]

			current, err := app.Client.GetUser(ctx, token, id)
			if err != nil {
				app.Log.Debug("load user for edit failed", zap.Error(err))
				return fail(err, "Failed to fetch user")
			}

			in := api.UpdateUserRequest{
				FirstName: current.FirstName,
				LastName:  current.LastName,
				Email:     current.Email,
				Phone:     current.Phone,
			}
			flags := cmd.Flags()
			if flags.Changed("first-name") {
				in.FirstName = firstName
			}
			if flags.Changed("last-name") {
				in.LastName = lastName
			}
			if flags.Changed("email") {
				in.Email = email
			}
			if flags.Changed("phone") {
				in.Phone = phone
			}

			if _, err := app.Client.UpdateUser(ctx, token, id, in); err != nil {
				app.Log.Debug("update user failed", zap.Error(err))
				return fail(err, "Failed to update user")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "User updated successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone, empty to clear")

	return cmd
}

func newUsersDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := app.confirm(cmd, "Are you sure you want to delete this user?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			if _, err := app.Client.DeleteUser(cmd.Context(), app.Session.Token(), args[0]); err != nil {
				app.Log.Debug("delete user failed", zap.Error(err))
				return fail(err, "Failed to delete user")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "User deleted successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
