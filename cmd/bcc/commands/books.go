package commands

import (
	"baikalctl/cmd/bcc/globals"
	"baikalctl/internal/models"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books [USERNAME]",
	Short: "List the address books of a user, or of every user.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		username := ""
		if len(args) > 0 {
			username = args[0]
		}
		books, err := g.Client.Books(cmd.Context(), username)
		if err != nil {
			return reportError(cmd, err)
		}
		if g.Table {
			renderBooks(cmd.OutOrStdout(), books)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), books)
	},
}

var mkbookCmd = &cobra.Command{
	Use:   "mkbook USERNAME NAME DESCRIPTION",
	Short: "Add an address book for a user.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		book, err := g.Client.AddBook(cmd.Context(), models.AddBookRequest{
			Username:    args[0],
			Bookname:    args[1],
			Description: args[2],
		})
		return output(cmd, book, err)
	},
}

var rmbookCmd = &cobra.Command{
	Use:   "rmbook USERNAME TOKEN",
	Short: "Delete an address book of a user.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		res, err := g.Client.DeleteBook(cmd.Context(), models.DeleteBookRequest{
			Username: args[0],
			Token:    args[1],
		})
		return output(cmd, res, err)
	},
}

func init() {
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(mkbookCmd)
	rootCmd.AddCommand(rmbookCmd)
}
