// Package models holds the records exchanged between the admin console
// automation and its callers. Every record is normalized then validated before
// it crosses a package boundary.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const MinPasswordLength = 8

var ErrInvalid = errors.New("invalid record")

const (
	reName   = `[a-zA-Z][a-zA-Z0-9._%+-]*[a-zA-Z0-9]`
	reDomain = `([a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]{1,}\.){1,}[a-zA-Z]{2,}`
)

var (
	nameRegex        = regexp.MustCompile("^" + reName + "$")
	emailRegex       = regexp.MustCompile("^" + reName + "@" + reDomain + "$")
	descriptionRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9@._ -]*[a-zA-Z0-9]*$|^$`)
	passwordRegex    = regexp.MustCompile(fmt.Sprintf(`^\S{%d,}$`, MinPasswordLength))
	tokenRegex       = regexp.MustCompile(`^[a-z0-9-]+$|^$`)
)

// FieldError describes a single field that failed validation.
type FieldError struct {
	Record string
	Field  string
	Value  string
	Reason string
}

func (e FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s.%s: %s", e.Record, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s: %q", e.Record, e.Field, e.Reason, e.Value)
}

func (e FieldError) Unwrap() error {
	return ErrInvalid
}

type validator struct {
	record string
	errs   []error
}

func (v *validator) match(field, value string, re *regexp.Regexp, reason string) {
	if !re.MatchString(value) {
		v.errs = append(v.errs, FieldError{Record: v.record, Field: field, Value: value, Reason: reason})
	}
}

// secret checks a field without echoing its value.
func (v *validator) secret(field, value string, re *regexp.Regexp, reason string) {
	if !re.MatchString(value) {
		v.errs = append(v.errs, FieldError{Record: v.record, Field: field, Reason: reason})
	}
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}

const (
	reasonName        = "must start with a letter and end with a letter or digit"
	reasonEmail       = "must be an email address"
	reasonDescription = "must start with a letter and contain only letters, digits and @._- or spaces"
	reasonToken       = "must contain only lowercase letters, digits and hyphens"
)

var reasonPassword = fmt.Sprintf("must be at least %d characters without whitespace", MinPasswordLength)

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Account holds the admin credentials supplied with a single request.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *Account) Normalize() {
	a.Username = lower(a.Username)
}

func (a Account) Validate() error {
	v := validator{record: "account"}
	v.match("username", a.Username, nameRegex, reasonName)
	v.secret("password", a.Password, passwordRegex, reasonPassword)
	return v.err()
}

// User is a console user, read back from the users table.
type User struct {
	Username    string `json:"username"`
	Displayname string `json:"displayname"`
	URI         string `json:"uri"`
}

func (u *User) Normalize() {
	u.Username = lower(u.Username)
	u.Displayname = strings.TrimSpace(u.Displayname)
	u.URI = strings.TrimSpace(u.URI)
}

func (u User) Validate() error {
	v := validator{record: "user"}
	v.match("username", u.Username, emailRegex, reasonEmail)
	v.match("displayname", u.Displayname, descriptionRegex, reasonDescription)
	return v.err()
}

// Book is an address book of a console user.
type Book struct {
	Username    string `json:"username"`
	Bookname    string `json:"bookname"`
	Description string `json:"description"`
	Contacts    int    `json:"contacts"`
	URI         string `json:"uri"`
	Token       string `json:"token"`
}

func (b *Book) Normalize() {
	b.Username = lower(b.Username)
	b.Bookname = lower(b.Bookname)
	b.Description = strings.TrimSpace(b.Description)
	b.URI = strings.TrimSpace(b.URI)
	b.Token = lower(b.Token)
}

func (b Book) Validate() error {
	v := validator{record: "book"}
	v.match("username", b.Username, emailRegex, reasonEmail)
	v.match("bookname", b.Bookname, descriptionRegex, reasonDescription)
	v.match("description", b.Description, descriptionRegex, reasonDescription)
	v.match("token", b.Token, tokenRegex, reasonToken)
	if b.Contacts < 0 {
		v.errs = append(v.errs, FieldError{Record: "book", Field: "contacts", Reason: "must not be negative"})
	}
	return v.err()
}

// DeriveToken builds the uri segment of a new address book from its owner and
// name: lowercased, every character outside [a-z0-9-] replaced by a hyphen.
func DeriveToken(username, bookname string) string {
	raw := strings.ToLower(username + "-" + bookname)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('-')
	}
	return b.String()
}
