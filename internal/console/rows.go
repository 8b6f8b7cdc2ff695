package console

import (
	"fmt"
	"strconv"
	"strings"

	"baikalctl/internal/browser"
	"baikalctl/internal/models"
	"baikalctl/pkg/htmlutil"
)

const (
	report_rows_table      = "rows.table"
	report_rows_parse_user = "rows.parse-user"
	report_rows_parse_book = "rows.parse-book"
)

// tableRows returns the body rows of the table on the current page. An empty
// table is reported and returned as nil when allowEmpty is set.
func (l locator) tableRows(name string, allowEmpty bool) ([]browser.Element, error) {
	rows, err := l.findElements(name+" table body rows", l.model.TableRows, allowNone())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		if !allowEmpty {
			return nil, interfaceFailure("no %s table body rows found", name)
		}
		l.tel.ReportWarning(report_rows_table, "no table body rows", name)
	}
	return rows, nil
}

type rowInfo struct {
	uri      string
	username string
}

// parseRowInfo reads the info popover of a row: an HTML fragment stored in an
// attribute, holding label/value text node pairs.
func (l locator) parseRowInfo(name string, row browser.Element) (rowInfo, error) {
	actions, err := l.findElement(name+" table row actions column", l.model.ColActions, under(row))
	if err != nil {
		return rowInfo{}, err
	}
	popover, err := l.findElement(name+" table row actions popover", l.model.Popover, under(actions))
	if err != nil {
		return rowInfo{}, err
	}
	content, err := popover.Attribute(l.model.PopoverContent)
	if err != nil {
		return rowInfo{}, interfaceFailure("%s table row popover unreadable: %v", name, err)
	}

	values, err := htmlutil.LabeledValues(content, l.model.URILabel, l.model.UsernameLabel)
	if err != nil {
		return rowInfo{}, interfaceFailure("%s table row info parse failed: %v", name, err)
	}
	info := rowInfo{
		uri:      values[l.model.URILabel],
		username: values[l.model.UsernameLabel],
	}
	if info.uri == "" {
		return rowInfo{}, interfaceFailure("%s table row info parse failed: no %s in %q", name, l.model.URILabel, content)
	}
	return info, nil
}

func (l locator) columnText(name, selector string, row browser.Element) (string, error) {
	col, err := l.findElement(name, selector, under(row))
	if err != nil {
		return "", err
	}
	text, err := col.Text()
	if err != nil {
		return "", interfaceFailure("%s unreadable: %v", name, err)
	}
	return text, nil
}

// parseUserRow reads a users table row. The username column renders as
// "<login>\n<displayname> <<email>>", the display name may be empty.
func (l locator) parseUserRow(row browser.Element) (models.User, error) {
	text, err := l.columnText("user table row username column", l.model.ColUsername, row)
	if err != nil {
		return models.User{}, err
	}
	login, rest, _ := strings.Cut(text, "\n")
	displayname, _, _ := strings.Cut(rest, "<")

	info, err := l.parseRowInfo("user", row)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username:    login,
		Displayname: displayname,
		URI:         info.uri,
	}
	if err := models.Prepare(&user); err != nil {
		l.tel.ReportBroken(report_rows_parse_user, err, text)
		return models.User{}, fmt.Errorf("%w: user table row invalid: %w", ErrInterfaceFailure, err)
	}
	return user, nil
}

// parseBookRow reads an address books table row of owner's page.
func (l locator) parseBookRow(row browser.Element, owner string) (models.Book, error) {
	bookname, err := l.columnText("book table row displayname column", l.model.ColDisplayname, row)
	if err != nil {
		return models.Book{}, err
	}
	contactsText, err := l.columnText("book table row contacts column", l.model.ColContacts, row)
	if err != nil {
		return models.Book{}, err
	}
	contacts, err := strconv.Atoi(contactsText)
	if err != nil {
		return models.Book{}, interfaceFailure("book table row contacts column not a number: %q", contactsText)
	}
	description, err := l.columnText("book table row description column", l.model.ColDescription, row)
	if err != nil {
		return models.Book{}, err
	}

	info, err := l.parseRowInfo("addressbooks", row)
	if err != nil {
		return models.Book{}, err
	}
	segments := strings.Split(info.uri, "/")
	if len(segments) < 2 {
		return models.Book{}, interfaceFailure("addressbooks table row uri has no token: %q", info.uri)
	}

	username := info.username
	if username == "" {
		username = owner
	}
	book := models.Book{
		Username:    username,
		Bookname:    bookname,
		Description: description,
		Contacts:    contacts,
		URI:         info.uri,
		Token:       segments[len(segments)-2],
	}
	if err := models.Prepare(&book); err != nil {
		l.tel.ReportBroken(report_rows_parse_book, err, info.uri)
		return models.Book{}, fmt.Errorf("%w: book table row invalid: %w", ErrInterfaceFailure, err)
	}
	return book, nil
}

// rowActionButtons returns the action links of a row keyed by their text.
func (l locator) rowActionButtons(name string, row browser.Element) (map[string]browser.Element, error) {
	actions, err := l.findElement(name+" table row actions column", l.model.ColActions, under(row))
	if err != nil {
		return nil, err
	}
	links, err := l.findElements(name+" table row action buttons", l.model.ActionButtons, under(actions), allowNone())
	if err != nil {
		return nil, err
	}
	buttons := make(map[string]browser.Element, len(links))
	for _, link := range links {
		text, err := link.Text()
		if err != nil {
			return nil, interfaceFailure("%s table row action unreadable: %v", name, err)
		}
		if text != "" {
			buttons[text] = link
		}
	}
	return buttons, nil
}
