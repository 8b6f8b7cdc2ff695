package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"baikalctl/internal/console"
	"baikalctl/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

const (
	kindUnauthorized     = "Unauthorized"
	kindValidationFailed = "ValidationFailed"
)

func requestName(r *http.Request) string {
	return r.Method + " " + r.URL.RequestURI()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.tel.ReportBroken(report_server_encode, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, kind string, detail []string) {
	s.writeJSON(w, status, models.ErrorResponse{
		Success: false,
		Request: requestName(r),
		Message: kind,
		Detail:  detail,
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	s.writeError(w, r, http.StatusUnauthorized, kindUnauthorized, []string{reason})
}

// errorDetail lists the errors joined in err, one entry per error.
func errorDetail(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var detail []string
		for _, e := range joined.Unwrap() {
			detail = append(detail, errorDetail(e)...)
		}
		return detail
	}
	return []string{err.Error()}
}

func (s *Server) invalid(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, http.StatusUnprocessableEntity, kindValidationFailed, errorDetail(err))
}

// fail answers an automation error with its kind.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.tel.ReportWarning(report_server_fail, requestName(r), err)
	s.writeError(w, r, http.StatusInternalServerError, console.Kind(err), []string{err.Error()})
}

// decode reads and prepares the request record of a body.
func decode[T any, P interface {
	*T
	models.Validatable
}](r *http.Request) (T, error) {
	var record T
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&record); err != nil {
		return record, err
	}
	if err := models.Prepare[T, P](&record); err != nil {
		return record, err
	}
	return record, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.automation.Status(r.Context(), accountFrom(r.Context()))
	s.writeJSON(w, http.StatusOK, models.StatusResponse{
		Response: models.OK("status", "server status"),
		Status:   status,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	message, err := s.automation.Reset(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.OK("reset", message))
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	message, err := s.automation.Initialize(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.OK("initialize", message))
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.automation.Users(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.UsersResponse{
		Response: models.OK("list users", "user list"),
		Users:    users,
	})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	req, err := decode[models.AddUserRequest](r)
	if err != nil {
		s.invalid(w, r, err)
		return
	}
	user, err := s.automation.AddUser(r.Context(), accountFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.UserResponse{
		Response: models.OK("add user", "user added"),
		User:     user,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	req, err := decode[models.DeleteUserRequest](r)
	if err != nil {
		s.invalid(w, r, err)
		return
	}
	message, err := s.automation.DeleteUser(r.Context(), accountFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.OK("delete user", message))
}

func (s *Server) handleAllBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.automation.AllBooks(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBooks(w, books)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.automation.Books(r.Context(), accountFrom(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBooks(w, books)
}

func (s *Server) writeBooks(w http.ResponseWriter, books []models.Book) {
	if books == nil {
		books = []models.Book{}
	}
	s.writeJSON(w, http.StatusOK, models.BooksResponse{
		Response: models.OK("list address books", "address book list"),
		Books:    books,
	})
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	req, err := decode[models.AddBookRequest](r)
	if err != nil {
		s.invalid(w, r, err)
		return
	}
	book, err := s.automation.AddBook(r.Context(), accountFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.BookResponse{
		Response: models.OK("add address book", "address book added"),
		Book:     book,
	})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	req, err := decode[models.DeleteBookRequest](r)
	if err != nil {
		s.invalid(w, r, err)
		return
	}
	message, err := s.automation.DeleteBook(r.Context(), accountFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.OK("delete address book", message))
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.tel.ReportWarning(report_server_request, "received shutdown request")
	s.writeJSON(w, http.StatusOK, models.OK("shutdown", "shutdown requested"))
	s.shutdown()
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	started := humanize.RelTime(s.startTime, s.time.Now(), "ago", "from now")
	s.writeJSON(w, http.StatusOK, models.OK("uptime", "started "+started))
}
