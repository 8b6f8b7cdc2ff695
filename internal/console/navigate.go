package console

import (
	"context"
	"fmt"

	"baikalctl/internal/browser"
	"baikalctl/internal/models"
)

const (
	report_navigate_login  = "navigate.login"
	report_navigate_navbar = "navigate.navbar"
)

// Login authenticates account on the console. It does nothing when account
// is already logged in, and logs out a different admin first.
func (s *Session) Login(ctx context.Context, account models.Account) error {
	if account.Username == "" {
		return fmt.Errorf("%w: login account has no username", models.ErrInvalid)
	}
	if s.loggedIn == account.Username {
		return nil
	}
	if s.loggedIn != "" {
		if err := s.Logout(ctx); err != nil {
			return err
		}
	}

	if err := s.get(ctx, s.model.AdminPath); err != nil {
		return err
	}
	title, err := s.title()
	if err != nil {
		return err
	}
	if title == s.model.MaintenanceTitle {
		return interfaceFailure("server not initialized")
	}
	s.tel.ReportDebug("connected", title)

	loc := s.locate()
	if err := loc.setText("login username field", s.model.LoginUsername, account.Username); err != nil {
		return err
	}
	if err := loc.setText("login password field", s.model.LoginPassword, account.Password); err != nil {
		return err
	}
	if err := loc.clickButton("login authenticate button", s.model.LoginButton, withText(s.model.LoginLabel)); err != nil {
		return err
	}
	if _, err := loc.checkPopups(true); err != nil {
		s.tel.ReportWarning(report_navigate_login, err, account.Username)
		return err
	}

	s.loggedIn = account.Username
	s.tel.ReportDebug("logged in", account.Username)
	return nil
}

// Logout does nothing when nobody is logged in.
func (s *Session) Logout(ctx context.Context) error {
	if s.loggedIn == "" {
		return nil
	}
	if err := s.get(ctx, s.model.AdminPath); err != nil {
		return err
	}
	if err := s.clickNavbarLink(s.model.LogoutLink); err != nil {
		return err
	}
	s.tel.ReportDebug("logged out", s.loggedIn)
	s.loggedIn = ""
	return nil
}

func (s *Session) clickNavbarLink(label string) error {
	loc := s.locate()
	navbars, err := loc.findElements("navbar", s.model.Navbar)
	if err != nil {
		return err
	}
	if len(navbars) != 1 {
		return interfaceFailure("expected one navbar, found %d", len(navbars))
	}

	links, err := loc.findElements("navbar links", s.model.NavbarLinks, under(navbars[0]))
	if err != nil {
		return err
	}
	byText := map[string]browser.Element{}
	labels := []string{}
	for _, link := range links {
		text, err := link.Text()
		if err != nil {
			return interfaceFailure("navbar link unreadable: %v", err)
		}
		if text == "" {
			continue
		}
		if _, seen := byText[text]; !seen {
			labels = append(labels, text)
		}
		byText[text] = link
	}

	link, ok := byText[label]
	if !ok {
		s.tel.ReportBroken(report_navigate_navbar, label, labels)
		return interfaceFailure("navbar link not found: expected=%q links=%q closest=%q", label, labels, closest(labels, label))
	}
	if err := link.Click(); err != nil {
		return interfaceFailure("navbar link %q click failed: %v", label, err)
	}
	return nil
}

func (s *Session) selectUserPage(ctx context.Context) error {
	if err := s.get(ctx, s.model.AdminPath); err != nil {
		return err
	}
	return s.clickNavbarLink(s.model.UsersLink)
}

// findUserRow selects the users page and returns the row of username. found
// is false when no row matches, which is an error unless allowMissing is set.
func (s *Session) findUserRow(ctx context.Context, username string, allowMissing bool) (row browser.Element, user models.User, found bool, err error) {
	if err := s.selectUserPage(ctx); err != nil {
		return nil, models.User{}, false, err
	}
	loc := s.locate()
	rows, err := loc.tableRows("users", allowMissing)
	if err != nil {
		return nil, models.User{}, false, err
	}
	for _, row := range rows {
		user, err := loc.parseUserRow(row)
		if err != nil {
			return nil, models.User{}, false, err
		}
		if user.Username == username {
			return row, user, true, nil
		}
	}

	s.tel.ReportDebug("user not found", username)
	if allowMissing {
		return nil, models.User{}, false, nil
	}
	return nil, models.User{}, false, interfaceFailure("failed to locate user row: username=%q", username)
}

// findUserActions returns the action buttons of username's row, nil when the
// user has no row.
func (s *Session) findUserActions(ctx context.Context, username string) (map[string]browser.Element, error) {
	row, _, found, err := s.findUserRow(ctx, username, true)
	if err != nil || !found {
		return nil, err
	}
	return s.locate().rowActionButtons("user", row)
}

// selectUserAddressBooks opens the address books page of username. It returns
// false when the user has no row.
func (s *Session) selectUserAddressBooks(ctx context.Context, username string) (bool, error) {
	actions, err := s.findUserActions(ctx, username)
	if err != nil {
		return false, err
	}
	if actions == nil {
		return false, nil
	}
	button, ok := actions[s.model.AddressBooksBtn]
	if !ok {
		return false, interfaceFailure("user %q has no %q action", username, s.model.AddressBooksBtn)
	}
	if err := button.Click(); err != nil {
		return false, interfaceFailure("%q click failed: %v", s.model.AddressBooksBtn, err)
	}
	return true, nil
}

// findBookRow opens the address books page of username and returns the row of
// the book with token. found is false when the user or the book has no row.
func (s *Session) findBookRow(ctx context.Context, username, token string) (row browser.Element, book models.Book, found bool, err error) {
	selected, err := s.selectUserAddressBooks(ctx, username)
	if err != nil || !selected {
		return nil, models.Book{}, false, err
	}
	loc := s.locate()
	rows, err := loc.tableRows("addressbooks", true)
	if err != nil {
		return nil, models.Book{}, false, err
	}
	for _, row := range rows {
		book, err := loc.parseBookRow(row, username)
		if err != nil {
			return nil, models.Book{}, false, err
		}
		if book.Token == token {
			return row, book, true, nil
		}
	}
	s.tel.ReportDebug("book not found", username, token)
	return nil, models.Book{}, false, nil
}
