package console

import (
	"context"
	"fmt"

	"baikalctl/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_books_add    = "books.add"
	report_books_delete = "books.delete"
)

// Books lists the address books of username. A user without a row has no
// books.
func (s *Session) Books(ctx context.Context, account models.Account, username string) (books []models.Book, err error) {
	ctx, done := s.observe(ctx, "books", attribute.String("username", username))
	defer func() { done(err) }()

	if err := s.Login(ctx, account); err != nil {
		return nil, err
	}
	return s.listBooks(ctx, username)
}

func (s *Session) listBooks(ctx context.Context, username string) ([]models.Book, error) {
	selected, err := s.selectUserAddressBooks(ctx, username)
	if err != nil {
		return nil, err
	}
	if !selected {
		return []models.Book{}, nil
	}
	loc := s.locate()
	rows, err := loc.tableRows("addressbooks", true)
	if err != nil {
		return nil, err
	}
	books := make([]models.Book, 0, len(rows))
	for _, row := range rows {
		book, err := loc.parseBookRow(row, username)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// AllBooks lists the address books of every user.
func (s *Session) AllBooks(ctx context.Context, account models.Account) (books []models.Book, err error) {
	ctx, done := s.observe(ctx, "all-books")
	defer func() { done(err) }()

	users, err := s.Users(ctx, account)
	if err != nil {
		return nil, err
	}
	books = []models.Book{}
	for _, user := range users {
		userBooks, err := s.listBooks(ctx, user.Username)
		if err != nil {
			return nil, err
		}
		books = append(books, userBooks...)
	}
	s.tel.ReportCount("books", int64(len(books)))
	return books, nil
}

// AddBook creates an address book whose token derives from the owner and the
// book name, and returns it as the console shows it afterwards.
func (s *Session) AddBook(ctx context.Context, account models.Account, req models.AddBookRequest) (added models.Book, err error) {
	ctx, done := s.observe(ctx, "add-book", attribute.String("username", req.Username))
	defer func() { done(err) }()

	s.tel.ReportDebug("add book", req.Username, req.Bookname, req.Description)
	if err := s.Login(ctx, account); err != nil {
		return models.Book{}, err
	}
	if _, _, _, err := s.findUserRow(ctx, req.Username, false); err != nil {
		return models.Book{}, err
	}

	book := req.Book()
	_, _, exists, err := s.findBookRow(ctx, book.Username, book.Token)
	if err != nil {
		return models.Book{}, err
	}
	if exists {
		s.tel.ReportWarning(report_books_add, "exists", book.Token)
		return models.Book{}, addFailed("address book exists: username=%s token=%s", book.Username, book.Token)
	}

	if _, err := s.selectUserAddressBooks(ctx, book.Username); err != nil {
		return models.Book{}, err
	}
	loc := s.locate()
	if err := loc.clickButton("add address book button", s.model.PageButtons, withText(s.model.AddBookLabel)); err != nil {
		return models.Book{}, err
	}
	if err := loc.setText("add book token field", s.model.BookFieldURI, book.Token); err != nil {
		return models.Book{}, err
	}
	if err := loc.setText("add book name field", s.model.BookFieldName, book.Bookname); err != nil {
		return models.Book{}, err
	}
	if err := loc.setText("add book description field", s.model.BookFieldDesc, book.Description); err != nil {
		return models.Book{}, err
	}
	if err := loc.clickButton("add book save changes button", s.model.FormButtons, withText(s.model.SaveLabel)); err != nil {
		return models.Book{}, err
	}
	if err := s.checkAddPopups("addressbook", fmt.Sprintf(s.model.BookCreated, book.Bookname)); err != nil {
		return models.Book{}, err
	}

	_, added, found, err := s.findBookRow(ctx, book.Username, book.Token)
	if err != nil {
		return models.Book{}, err
	}
	if !found {
		return models.Book{}, addFailed("added address book not listed: token=%s", book.Token)
	}
	if added.Username != book.Username ||
		added.Bookname != book.Bookname ||
		added.Description != book.Description ||
		added.Token != book.Token {
		err := addFailed("added book mismatches request: added=%+v request=%+v", added, req)
		s.tel.ReportWarning(report_books_add, err)
		return models.Book{}, err
	}
	return added, nil
}

// DeleteBook deletes the address book of req, failing with ErrDeleteFailed
// when the user or the book does not exist.
func (s *Session) DeleteBook(ctx context.Context, account models.Account, req models.DeleteBookRequest) (message string, err error) {
	ctx, done := s.observe(ctx, "delete-book", attribute.String("username", req.Username))
	defer func() { done(err) }()

	s.tel.ReportDebug("delete book", req.Username, req.Token)
	if err := s.Login(ctx, account); err != nil {
		return "", err
	}
	_, _, userFound, err := s.findUserRow(ctx, req.Username, true)
	if err != nil {
		return "", err
	}
	if !userFound {
		s.tel.ReportWarning(report_books_delete, "user not found", req.Username)
		return "", deleteFailed("user not found: username=%q", req.Username)
	}
	row, _, found, err := s.findBookRow(ctx, req.Username, req.Token)
	if err != nil {
		return "", err
	}
	if !found {
		s.tel.ReportWarning(report_books_delete, "book not found", req.Username, req.Token)
		return "", deleteFailed("book not found: username=%q token=%q", req.Username, req.Token)
	}

	loc := s.locate()
	// The confirmation repeats the display name as stored, not normalized.
	displayname, err := loc.columnText("book table row displayname column", s.model.ColDisplayname, row)
	if err != nil {
		return "", err
	}
	actions, err := loc.rowActionButtons("addressbook", row)
	if err != nil {
		return "", err
	}
	button, ok := actions[s.model.DeleteBtn]
	if !ok {
		return "", interfaceFailure("failed to locate address book %s button", s.model.DeleteBtn)
	}
	if err := button.Click(); err != nil {
		return "", interfaceFailure("address book %s click failed: %v", s.model.DeleteBtn, err)
	}
	_, err = loc.findElements(
		"book delete confirmation button",
		s.model.ConfirmDelete,
		withText(s.model.DeletePrefix+displayname),
		andClick(),
	)
	if err != nil {
		return "", err
	}
	return "deleted book: " + req.Token, nil
}
