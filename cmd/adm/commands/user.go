package commands

import (
	"context"
	"fmt"
	"os"

	"devlense/internal/config"
	"devlense/internal/observability"
	"devlense/internal/services"
	contextutils "devlense/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the member account commands
func UserCommands(userService services.UserServiceInterface, logger *observability.Logger, databaseURL string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Member account commands",
		Long: `Member account commands.

Available commands:
  list           - List all members
  create         - Create a member who can sign in
  reset-password - Reset a member's password`,
	}

	userCmd.AddCommand(listUsersCmd(userService, logger, databaseURL))
	userCmd.AddCommand(createUserCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))

	return userCmd
}

func listUsersCmd(userService services.UserServiceInterface, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{
				"config_file":  os.Getenv(config.ConfigFileEnv),
				"database_url": contextutils.MaskDatabaseURL(databaseURL),
			})

			users, err := userService.GetAllUsers(ctx)
			if err != nil {
				logger.Error(ctx, "Failed to get users", err, nil)
				return contextutils.WrapError(err, "failed to get users")
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found")
				return nil
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tADMIN\tCREATED")
			for _, user := range users {
				email := "N/A"
				if user.Email.Valid && user.Email.String != "" {
					email = user.Email.String
				}
				admin := "no"
				if user.IsAdmin {
					admin = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", user.ID, user.Username, email, admin, user.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func createUserCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a member who can sign in",
		Long:  `Create a member account. The password is prompted for twice.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			username := args[0]

			if email != "" && !contextutils.IsValidEmail(email) {
				return contextutils.ErrorWithContextf("invalid email address %q", email)
			}

			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}

			user, err := userService.CreateUserWithPassword(ctx, username, password, email)
			if err != nil {
				logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": username})
				return contextutils.WrapErrorf(err, "failed to create user '%s'", username)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created user '%s' (ID: %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address for the member")

	return cmd
}

func resetPasswordCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Reset a member's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			username := args[0]

			user, err := userService.GetUserByUsername(ctx, username)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
			}
			if user == nil {
				return contextutils.ErrorWithContextf("user '%s' not found", username)
			}

			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}

			if err := userService.UpdateUserPassword(ctx, user.ID, password); err != nil {
				logger.Error(ctx, "Failed to update password", err, map[string]interface{}{"username": username, "user_id": user.ID})
				return contextutils.WrapErrorf(err, "failed to update password for user '%s'", username)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password reset for user '%s' (ID: %d)\n", username, user.ID)
			logger.Info(ctx, "Password reset successful", map[string]interface{}{"username": username, "user_id": user.ID})
			return nil
		},
	}
}
