package commands

import (
	"baikalctl/cmd/bcc/globals"
	"baikalctl/internal/models"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List user accounts.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		users, err := g.Client.Users(cmd.Context())
		if err != nil {
			return reportError(cmd, err)
		}
		if g.Table {
			renderUsers(cmd.OutOrStdout(), users)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), users)
	},
}

var mkuserCmd = &cobra.Command{
	Use:   "mkuser USERNAME DISPLAYNAME PASSWORD",
	Short: "Add a user account.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		user, err := g.Client.AddUser(cmd.Context(), models.AddUserRequest{
			Username:    args[0],
			Displayname: args[1],
			Password:    args[2],
		})
		return output(cmd, user, err)
	},
}

var rmuserCmd = &cobra.Command{
	Use:   "rmuser USERNAME",
	Short: "Delete a user account.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		res, err := g.Client.DeleteUser(cmd.Context(), models.DeleteUserRequest{Username: args[0]})
		return output(cmd, res, err)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(mkuserCmd)
	rootCmd.AddCommand(rmuserCmd)
}
