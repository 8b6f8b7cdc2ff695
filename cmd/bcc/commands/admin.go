package commands

import (
	"context"
	"fmt"

	"baikalctl/cmd/bcc/globals"
	"baikalctl/internal/client"
	"baikalctl/internal/version"

	"github.com/spf13/cobra"
)

// simpleCommand answers with the JSON result of call.
func simpleCommand[T any](use, short string, call func(c *client.Client, ctx context.Context) (T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := globals.Get(cmd.Context())
			res, err := call(g.Client, cmd.Context())
			return output(cmd, res, err)
		},
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number.",
	Args:  cobra.NoArgs,
	// no config or connection needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Version)
	},
}

func init() {
	rootCmd.AddCommand(
		simpleCommand("status", "Print the server status.", (*client.Client).Status),
		simpleCommand("reset", "Restart the server browser session.", (*client.Client).Reset),
		simpleCommand("initialize", "Run the setup wizard of a freshly installed console.", (*client.Client).Initialize),
		simpleCommand("shutdown", "Request a server shutdown.", (*client.Client).Shutdown),
		simpleCommand("uptime", "Print the server uptime.", (*client.Client).Uptime),
		versionCmd,
	)
}
