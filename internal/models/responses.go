package models

// Response is the envelope every REST reply shares.
type Response struct {
	Success bool   `json:"success"`
	Request string `json:"request"`
	Message string `json:"message"`
}

func OK(request, message string) Response {
	return Response{Success: true, Request: request, Message: message}
}

type UserResponse struct {
	Response
	User User `json:"user"`
}

type UsersResponse struct {
	Response
	Users []User `json:"users"`
}

type BookResponse struct {
	Response
	Book Book `json:"book"`
}

type BooksResponse struct {
	Response
	Books []Book `json:"books"`
}

type StatusResponse struct {
	Response
	Status Status `json:"status"`
}

// ErrorResponse is returned for every failed request, Message holds the
// error kind.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Request string   `json:"request"`
	Message string   `json:"message"`
	Detail  []string `json:"detail"`
}

// Status describes the automation session.
type Status struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	Driver            string   `json:"driver"`
	URL               string   `json:"url"`
	Uptime            string   `json:"uptime"`
	Reset             string   `json:"reset"`
	Profile           string   `json:"profile"`
	Certificates      []string `json:"certificates"`
	CertificateLoaded string   `json:"certificate_loaded"`
	Login             string   `json:"login"`
}
