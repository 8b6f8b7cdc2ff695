// Package server exposes one console automation session over a small JSON
// REST API. Every request carries admin credentials and the API key in
// headers, requests are served one at a time and the session is logged out
// after each of them.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"baikalctl/internal/components/assert"
	"baikalctl/internal/components/chrono"
	"baikalctl/internal/components/telemetry"
	"baikalctl/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	HeaderUsername = "X-Admin-Username"
	HeaderPassword = "X-Admin-Password"
	HeaderAPIKey   = "X-Api-Key"
)

const (
	report_server_request = "server.request"
	report_server_logout  = "server.logout"
	report_server_fail    = "server.fail"
	report_server_encode  = "server.encode"
)

// Automation is the console session driven by the REST handlers.
type Automation interface {
	Status(ctx context.Context, account models.Account) models.Status
	Reset(ctx context.Context, account models.Account) (string, error)
	Initialize(ctx context.Context, account models.Account) (string, error)
	Users(ctx context.Context, account models.Account) ([]models.User, error)
	AddUser(ctx context.Context, account models.Account, req models.AddUserRequest) (models.User, error)
	DeleteUser(ctx context.Context, account models.Account, req models.DeleteUserRequest) (string, error)
	Books(ctx context.Context, account models.Account, username string) ([]models.Book, error)
	AllBooks(ctx context.Context, account models.Account) ([]models.Book, error)
	AddBook(ctx context.Context, account models.Account, req models.AddBookRequest) (models.Book, error)
	DeleteBook(ctx context.Context, account models.Account, req models.DeleteBookRequest) (string, error)
	Logout(ctx context.Context) error
}

type Options struct {
	APIKey string
	Time   chrono.API
	// Shutdown is called once a shutdown request has been answered.
	Shutdown func()
}

type Server struct {
	automation Automation
	tel        telemetry.API
	time       chrono.API
	apiKey     string
	shutdown   func()
	startTime  time.Time

	mu sync.Mutex
}

func NewServer(automation Automation, tel telemetry.API, opts Options) (*Server, error) {
	assert.NotNil(automation, "automation")
	assert.NotNil(tel, "tel")
	if opts.APIKey == "" {
		return nil, errors.New("server requires an api key")
	}

	clock := opts.Time
	if clock == nil {
		clock = chrono.StandardImpl{}
	}
	shutdown := opts.Shutdown
	if shutdown == nil {
		shutdown = func() {}
	}
	return &Server{
		automation: automation,
		tel:        telemetry.NewScopedAPI("server", tel),
		time:       clock,
		apiKey:     opts.APIKey,
		shutdown:   shutdown,
		startTime:  clock.Now(),
	}, nil
}

// Handler returns the router serving every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequest)
	r.Use(s.authenticate)
	r.Use(s.exclusive)

	r.Get("/status/", s.handleStatus)
	r.Post("/reset/", s.handleReset)
	r.Post("/initialize/", s.handleInitialize)
	r.Get("/users/", s.handleUsers)
	r.Post("/user/", s.handleAddUser)
	r.Delete("/user/", s.handleDeleteUser)
	r.Get("/books/", s.handleAllBooks)
	r.Get("/books/{username}/", s.handleBooks)
	r.Post("/book/", s.handleAddBook)
	r.Delete("/book/", s.handleDeleteBook)
	r.Post("/shutdown/", s.handleShutdown)
	r.Get("/uptime/", s.handleUptime)
	return r
}

// RunExclusive runs fn while holding the request lock and logs out
// afterwards, the same way a request is served.
func (s *Server) RunExclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.logout(ctx)
	return fn(ctx)
}

func (s *Server) logout(ctx context.Context) {
	err := s.automation.Logout(context.WithoutCancel(ctx))
	if err != nil {
		s.tel.ReportWarning(report_server_logout, err)
	}
}

// requestID is chimw.RequestID with uuids, a request id sent by the caller is
// kept.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimw.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(chimw.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.time.Now()
		next.ServeHTTP(ww, r)
		s.tel.ReportDebug(
			report_server_request,
			chimw.GetReqID(r.Context()),
			requestName(r),
			ww.Status(),
			s.time.Now().Sub(start).String(),
		)
	})
}

type accountKeyType int

var accountKey accountKeyType

func accountFrom(ctx context.Context) models.Account {
	account, _ := ctx.Value(accountKey).(models.Account)
	return account
}

// authenticate checks the api key and builds the admin account of the
// request from its headers.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderAPIKey)), []byte(s.apiKey)) != 1 {
			s.unauthorized(w, r, "invalid API key")
			return
		}
		account := models.Account{
			Username: r.Header.Get(HeaderUsername),
			Password: r.Header.Get(HeaderPassword),
		}
		if account.Username == "" {
			s.unauthorized(w, r, "missing username")
			return
		}
		if account.Password == "" {
			s.unauthorized(w, r, "missing password")
			return
		}
		if err := models.Prepare(&account); err != nil {
			s.invalid(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), accountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// exclusive serves one request at a time and logs the session out after
// each request whatever its outcome.
func (s *Server) exclusive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.logout(r.Context())
		next.ServeHTTP(w, r)
	})
}
