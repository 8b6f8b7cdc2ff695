package models

import "strings"

type AddUserRequest struct {
	Username    string `json:"username"`
	Displayname string `json:"displayname"`
	Password    string `json:"password"`
}

func (r *AddUserRequest) Normalize() {
	r.Username = lower(r.Username)
	r.Displayname = strings.TrimSpace(r.Displayname)
}

func (r AddUserRequest) Validate() error {
	v := validator{record: "add user request"}
	v.match("username", r.Username, emailRegex, reasonEmail)
	v.match("displayname", r.Displayname, descriptionRegex, reasonDescription)
	v.secret("password", r.Password, passwordRegex, reasonPassword)
	return v.err()
}

// User returns the record the console is expected to show once the user exists.
func (r AddUserRequest) User() User {
	return User{Username: r.Username, Displayname: r.Displayname}
}

type DeleteUserRequest struct {
	Username string `json:"username"`
}

func (r *DeleteUserRequest) Normalize() {
	r.Username = lower(r.Username)
}

func (r DeleteUserRequest) Validate() error {
	v := validator{record: "delete user request"}
	v.match("username", r.Username, emailRegex, reasonEmail)
	return v.err()
}

type AddBookRequest struct {
	Username    string `json:"username"`
	Bookname    string `json:"bookname"`
	Description string `json:"description"`
}

func (r *AddBookRequest) Normalize() {
	r.Username = lower(r.Username)
	r.Bookname = lower(r.Bookname)
	r.Description = strings.TrimSpace(r.Description)
}

func (r AddBookRequest) Validate() error {
	v := validator{record: "add book request"}
	v.match("username", r.Username, emailRegex, reasonEmail)
	v.match("bookname", r.Bookname, descriptionRegex, reasonDescription)
	v.match("description", r.Description, descriptionRegex, reasonDescription)
	return v.err()
}

// Book returns the record the console is expected to show once the address
// book exists, including its derived token.
func (r AddBookRequest) Book() Book {
	return Book{
		Username:    r.Username,
		Bookname:    r.Bookname,
		Description: r.Description,
		Token:       DeriveToken(r.Username, r.Bookname),
	}
}

type DeleteBookRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (r *DeleteBookRequest) Normalize() {
	r.Username = lower(r.Username)
	r.Token = lower(r.Token)
}

func (r DeleteBookRequest) Validate() error {
	v := validator{record: "delete book request"}
	v.match("username", r.Username, emailRegex, reasonEmail)
	v.match("token", r.Token, tokenRegex, reasonToken)
	if r.Token == "" {
		v.errs = append(v.errs, FieldError{Record: "delete book request", Field: "token", Reason: "is required"})
	}
	return v.err()
}

// Validatable is implemented by every request record.
type Validatable interface {
	Normalize()
	Validate() error
}

// Prepare normalizes then validates a record in place.
func Prepare[T any, P interface {
	*T
	Validatable
}](record *T) error {
	P(record).Normalize()
	return P(record).Validate()
}
