package console

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"baikalctl/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_users_add    = "users.add"
	report_users_delete = "users.delete"
)

// Users lists every user of the console.
func (s *Session) Users(ctx context.Context, account models.Account) (users []models.User, err error) {
	ctx, done := s.observe(ctx, "users")
	defer func() { done(err) }()

	if err := s.Login(ctx, account); err != nil {
		return nil, err
	}
	if err := s.selectUserPage(ctx); err != nil {
		return nil, err
	}
	loc := s.locate()
	rows, err := loc.tableRows("users", true)
	if err != nil {
		return nil, err
	}
	users = make([]models.User, 0, len(rows))
	for _, row := range rows {
		user, err := loc.parseUserRow(row)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	s.tel.ReportCount("users", int64(len(users)))
	return users, nil
}

// AddUser creates a user and returns it as the console shows it afterwards.
func (s *Session) AddUser(ctx context.Context, account models.Account, req models.AddUserRequest) (added models.User, err error) {
	ctx, done := s.observe(ctx, "add-user", attribute.String("username", req.Username))
	defer func() { done(err) }()

	s.tel.ReportDebug("add user", req.Username, req.Displayname)
	user := req.User()
	if err := s.Login(ctx, account); err != nil {
		return models.User{}, err
	}
	if err := s.selectUserPage(ctx); err != nil {
		return models.User{}, err
	}

	loc := s.locate()
	if err := loc.clickButton("add user button", s.model.PageButtons, withText(s.model.AddUserLabel)); err != nil {
		return models.User{}, err
	}
	fields := []struct {
		name     string
		selector string
		text     string
	}{
		{"add user username field", s.model.UserFieldName, user.Username},
		{"add user displayname field", s.model.UserFieldDisp, user.Displayname},
		{"add user email field", s.model.UserFieldEmail, user.Username},
		{"add user password field", s.model.UserFieldPass, req.Password},
		{"add user password confirmation field", s.model.UserFieldConf, req.Password},
	}
	for _, f := range fields {
		if err := loc.setText(f.name, f.selector, f.text); err != nil {
			return models.User{}, err
		}
	}
	if err := loc.clickButton("add user save changes button", s.model.FormButtons, withText(s.model.SaveLabel)); err != nil {
		return models.User{}, err
	}
	if err := s.checkAddPopups("user", fmt.Sprintf(s.model.UserCreated, user.Username)); err != nil {
		return models.User{}, err
	}

	_, added, _, err = s.findUserRow(ctx, user.Username, false)
	if err != nil {
		return models.User{}, err
	}
	if added.Username != req.Username || added.Displayname != req.Displayname {
		err := addFailed("added user mismatches request: added=%+v request=%q/%q", added, req.Username, req.Displayname)
		s.tel.ReportWarning(report_users_add, err)
		return models.User{}, err
	}
	return added, nil
}

// checkAddPopups closes the confirmation popup of a create form and requires
// its message to be expected.
func (s *Session) checkAddPopups(name, expected string) error {
	loc := s.locate()
	popups, err := loc.checkPopups(false)
	if err != nil {
		return err
	}
	if err := loc.clickButton(fmt.Sprintf("add %s close button", name), s.model.FormButtons, withText(s.model.CloseLabel)); err != nil {
		return err
	}
	if slices.Contains(popups, expected) {
		return nil
	}

	message := "missing add response"
	if len(popups) > 0 {
		message = strings.ReplaceAll(strings.Join(popups, ": "), "\n", ": ")
	}
	s.tel.ReportWarning(report_users_add, name, message)
	return addFailed("%s", message)
}

// DeleteUser deletes the user of req, failing with ErrDeleteFailed when no
// such user exists.
func (s *Session) DeleteUser(ctx context.Context, account models.Account, req models.DeleteUserRequest) (message string, err error) {
	ctx, done := s.observe(ctx, "delete-user", attribute.String("username", req.Username))
	defer func() { done(err) }()

	s.tel.ReportDebug("delete user", req.Username)
	if err := s.Login(ctx, account); err != nil {
		return "", err
	}
	actions, err := s.findUserActions(ctx, req.Username)
	if err != nil {
		return "", err
	}
	if actions == nil {
		s.tel.ReportWarning(report_users_delete, "user not found", req.Username)
		return "", deleteFailed("user not found: username=%q", req.Username)
	}
	button, ok := actions[s.model.DeleteBtn]
	if !ok {
		return "", interfaceFailure("failed to locate user %s button", s.model.DeleteBtn)
	}
	if err := button.Click(); err != nil {
		return "", interfaceFailure("user %s click failed: %v", s.model.DeleteBtn, err)
	}
	_, err = s.locate().findElements(
		"user delete confirmation button",
		s.model.ConfirmDelete,
		withText(s.model.DeletePrefix+req.Username),
		andClick(),
	)
	if err != nil {
		return "", err
	}
	return "deleted user: " + req.Username, nil
}
