// Package client calls the baikalctl REST service.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"baikalctl/internal/certs"
	"baikalctl/internal/components/assert"
	"baikalctl/internal/components/telemetry"
	"baikalctl/internal/models"
	libtelemetry "baikalctl/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const (
	headerUsername = "X-Admin-Username"
	headerPassword = "X-Admin-Password"
	headerAPIKey   = "X-Api-Key"
)

const DefaultTimeout = 5 * time.Minute

var ErrPKCS12 = errors.New("PKCS#12 client certificates are not supported, use a PEM certificate and key")

// APIError is a non 2xx answer of the service.
type APIError struct {
	Status   int
	Response models.ErrorResponse
	// Body is the raw answer when it was not an error record.
	Body string
}

func (e *APIError) Error() string {
	if e.Response.Message == "" {
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), strings.TrimSpace(e.Body))
	}
	if len(e.Response.Detail) == 0 {
		return fmt.Sprintf("%d %s", e.Status, e.Response.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Response.Message, strings.Join(e.Response.Detail, "; "))
}

type Options struct {
	URL        string
	Account    models.Account
	APIKey     string
	ClientCert string
	ClientKey  string
	CACert     string
	Timeout    time.Duration
}

type Client struct {
	http *resty.Client
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")

	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, err
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("service url must be absolute: %q", opts.URL)
	}
	account := opts.Account
	if err := models.Prepare(&account); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(base.String())
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader(headerUsername, account.Username)
	client.SetHeader(headerPassword, account.Password)
	client.SetHeader(headerAPIKey, opts.APIKey)

	if opts.ClientCert != "" {
		cert, err := loadClientCert(opts.ClientCert, opts.ClientKey)
		if err != nil {
			return nil, err
		}
		client.SetCertificates(cert)
	}
	if opts.CACert != "" {
		if err := certs.ValidatePEM(opts.CACert, certs.Certificate); err != nil {
			return nil, err
		}
		client.SetRootCertificate(opts.CACert)
	}

	libtelemetry.TraceResty(client, "baikalctl/client")
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("client", tel))

	return &Client{http: client}, nil
}

func loadClientCert(certFile, keyFile string) (tls.Certificate, error) {
	if certs.IsPKCS12(certFile) {
		return tls.Certificate{}, ErrPKCS12
	}
	if err := certs.ValidatePEM(certFile, certs.Certificate); err != nil {
		return tls.Certificate{}, err
	}
	if err := certs.ValidatePEM(keyFile, certs.PrivateKey); err != nil {
		return tls.Certificate{}, err
	}
	return tls.LoadX509KeyPair(certFile, keyFile)
}

func do[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	var failure models.ErrorResponse

	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&failure)
	if body != nil {
		req.SetBody(body)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return out, err
	}
	if res.IsError() {
		return out, &APIError{Status: res.StatusCode(), Response: failure, Body: res.String()}
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context) (models.Status, error) {
	res, err := do[models.StatusResponse](ctx, c, http.MethodGet, "/status/", nil)
	return res.Status, err
}

func (c *Client) Initialize(ctx context.Context) (models.Response, error) {
	return do[models.Response](ctx, c, http.MethodPost, "/initialize/", nil)
}

func (c *Client) Reset(ctx context.Context) (models.Response, error) {
	return do[models.Response](ctx, c, http.MethodPost, "/reset/", nil)
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	res, err := do[models.UsersResponse](ctx, c, http.MethodGet, "/users/", nil)
	return res.Users, err
}

func (c *Client) AddUser(ctx context.Context, req models.AddUserRequest) (models.User, error) {
	if err := models.Prepare(&req); err != nil {
		return models.User{}, err
	}
	res, err := do[models.UserResponse](ctx, c, http.MethodPost, "/user/", req)
	return res.User, err
}

func (c *Client) DeleteUser(ctx context.Context, req models.DeleteUserRequest) (models.Response, error) {
	if err := models.Prepare(&req); err != nil {
		return models.Response{}, err
	}
	return do[models.Response](ctx, c, http.MethodDelete, "/user/", req)
}

// Books lists the address books of username, or of every user when username
// is empty.
func (c *Client) Books(ctx context.Context, username string) ([]models.Book, error) {
	path := "/books/"
	if username != "" {
		path = "/books/" + url.PathEscape(username) + "/"
	}
	res, err := do[models.BooksResponse](ctx, c, http.MethodGet, path, nil)
	return res.Books, err
}

func (c *Client) AddBook(ctx context.Context, req models.AddBookRequest) (models.Book, error) {
	if err := models.Prepare(&req); err != nil {
		return models.Book{}, err
	}
	res, err := do[models.BookResponse](ctx, c, http.MethodPost, "/book/", req)
	return res.Book, err
}

func (c *Client) DeleteBook(ctx context.Context, req models.DeleteBookRequest) (models.Response, error) {
	if err := models.Prepare(&req); err != nil {
		return models.Response{}, err
	}
	return do[models.Response](ctx, c, http.MethodDelete, "/book/", req)
}

func (c *Client) Shutdown(ctx context.Context) (models.Response, error) {
	return do[models.Response](ctx, c, http.MethodPost, "/shutdown/", nil)
}

func (c *Client) Uptime(ctx context.Context) (models.Response, error) {
	return do[models.Response](ctx, c, http.MethodGet, "/uptime/", nil)
}
