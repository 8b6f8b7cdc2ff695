package commands

import (
	"fmt"

	"baikalctl/internal/version"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

const apiKeyLength = 32

var (
	revealSecrets  bool
	generateAPIKey bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration in dotenv format.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if generateAPIKey {
			cfg.APIKey, err = random.String(apiKeyLength)
			if err != nil {
				return fmt.Errorf("generate api key: %w", err)
			}
		}
		dump, err := cfg.Dump(revealSecrets)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dump)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Version)
	},
}

func init() {
	configCmd.Flags().BoolVar(&revealSecrets, "insecure", false, "Print secrets in clear text.")
	configCmd.Flags().BoolVar(&generateAPIKey, "generate-api-key", false, "Replace the API key with a new random one.")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
