package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"baikalctl/internal/client"
	"baikalctl/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	kindRequestFailed    = "RequestFailed"
	kindValidationFailed = "ValidationFailed"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// output prints the result of a request, or its failure as an error record.
func output(cmd *cobra.Command, v any, err error) error {
	if err != nil {
		return reportError(cmd, err)
	}
	return writeJSON(cmd.OutOrStdout(), v)
}

// reportError prints err as an error record on stdout so scripts can parse
// it, the returned error only sets the exit code.
func reportError(cmd *cobra.Command, err error) error {
	response := errorResponse(cmd, err)
	if writeErr := writeJSON(cmd.OutOrStdout(), response); writeErr != nil {
		return errors.Join(err, writeErr)
	}
	return errReported
}

func errorResponse(cmd *cobra.Command, err error) models.ErrorResponse {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Response.Message != "" {
		return apiErr.Response
	}

	response := models.ErrorResponse{
		Request: cmd.Name(),
		Message: kindRequestFailed,
		Detail:  []string{err.Error()},
	}
	if errors.Is(err, models.ErrInvalid) {
		response.Message = kindValidationFailed
	}
	if apiErr != nil {
		response.Message = fmt.Sprintf("%d", apiErr.Status)
		response.Detail = []string{strings.TrimSpace(apiErr.Body)}
	}
	return response
}

func renderUsers(w io.Writer, users []models.User) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Username", "Display Name", "URI"})
	for _, user := range users {
		t.AppendRow(table.Row{user.Username, user.Displayname, user.URI})
	}
	t.AppendFooter(table.Row{"", "Total", len(users)})
	t.Render()
}

func renderBooks(w io.Writer, books []models.Book) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Username", "Name", "Description", "Contacts", "Token"})
	for _, book := range books {
		t.AppendRow(table.Row{book.Username, book.Bookname, book.Description, book.Contacts, book.Token})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(books)})
	t.Render()
}
