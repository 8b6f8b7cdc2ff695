// Package console automates the Baïkal admin console through a browser.
//
// A Session holds one browser page and the identity logged in on it. It is
// not safe for concurrent use: callers serialize every method call.
package console

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"baikalctl/internal/browser"
	"baikalctl/internal/components/assert"
	"baikalctl/internal/components/chrono"
	"baikalctl/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("baikalctl.internal.console")
var meter = otel.Meter("baikalctl.internal.console")
var operationCounter, _ = meter.Int64Counter("console_operations")
var failureCounter, _ = meter.Int64Counter("console_failures")

const (
	report_session_launch   = "session.launch"
	report_session_get      = "session.get"
	report_session_shutdown = "session.shutdown"
)

const (
	DefaultWizardMaxSteps = 10
	DefaultWizardTimeout  = 2 * time.Minute
)

// Options configures a Session, it is copied at construction.
type Options struct {
	// URL is the console root, e.g. https://dav.example.org/baikal
	URL         string
	ClientCert  string
	ProfileName string

	// WizardMaxSteps is DefaultWizardMaxSteps when zero and must not be negative.
	WizardMaxSteps int
	WizardTimeout  time.Duration

	PageModel *PageModel
	Time      chrono.API
	Version   string
}

type Session struct {
	launcher browser.Launcher
	tel      telemetry.API
	time     chrono.API
	model    PageModel

	baseURL        string
	adminSuffix    string
	clientCert     string
	profileName    string
	version        string
	wizardMaxSteps int
	wizardTimeout  time.Duration

	driver    browser.Driver
	loggedIn  string
	startTime time.Time
	resetTime time.Time
}

func NewSession(launcher browser.Launcher, tel telemetry.API, opts Options) (*Session, error) {
	assert.NotNil(launcher, "launcher")
	assert.NotNil(tel, "tel")

	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse console url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("console url must be absolute: %q", opts.URL)
	}

	model := DefaultPageModel()
	if opts.PageModel != nil {
		model = *opts.PageModel
	}
	clock := opts.Time
	if clock == nil {
		clock = chrono.StandardImpl{}
	}
	if opts.WizardMaxSteps == 0 {
		opts.WizardMaxSteps = DefaultWizardMaxSteps
	}
	if opts.WizardTimeout <= 0 {
		opts.WizardTimeout = DefaultWizardTimeout
	}
	assert.Positive(opts.WizardMaxSteps, "wizard max steps")

	return &Session{
		launcher:       launcher,
		tel:            telemetry.NewScopedAPI("console", tel),
		time:           clock,
		model:          model,
		baseURL:        base.String(),
		adminSuffix:    base.Path + model.AdminPath,
		clientCert:     opts.ClientCert,
		profileName:    opts.ProfileName,
		version:        opts.Version,
		wizardMaxSteps: opts.WizardMaxSteps,
		wizardTimeout:  opts.WizardTimeout,
		startTime:      clock.Now(),
	}, nil
}

// LoggedIn returns the username of the logged in admin, "" when logged out.
func (s *Session) LoggedIn() string {
	return s.loggedIn
}

func (s *Session) locate() locator {
	return locator{driver: s.driver, tel: s.tel, model: s.model}
}

// get loads a console path, launching the browser on first use.
func (s *Session) get(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.driver == nil {
		driver, err := s.launcher.Launch(ctx)
		if err != nil {
			s.tel.ReportBroken(report_session_launch, err)
			return interfaceFailure("browser launch failed: %v", err)
		}
		s.driver = driver
	}

	target := s.baseURL + path
	s.tel.ReportDebug("GET", target)
	if err := s.driver.Get(ctx, target); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.tel.ReportWarning(report_session_get, err, target)
		return interfaceFailure("GET %s: %v", target, err)
	}
	return nil
}

func (s *Session) title() (string, error) {
	title, err := s.driver.Title()
	if err != nil {
		return "", interfaceFailure("page title unreadable: %v", err)
	}
	return title, nil
}

// Shutdown logs out and closes the browser. The next operation launches a new
// one.
func (s *Session) Shutdown(ctx context.Context) error {
	s.tel.ReportDebug("shutdown")
	if s.loggedIn != "" {
		if err := s.Logout(ctx); err != nil {
			s.tel.ReportWarning(report_session_shutdown, err)
		}
	}
	s.loggedIn = ""
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close()
	s.driver = nil
	if err != nil {
		s.tel.ReportWarning(report_session_shutdown, err)
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// observe starts a span for a session operation, the returned func ends it
// and counts the outcome.
func (s *Session) observe(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, "console:"+operation, trace.WithAttributes(attrs...))
	opAttr := metric.WithAttributes(attribute.String("operation", operation))
	operationCounter.Add(ctx, 1, opAttr)

	return ctx, func(err error) {
		defer span.End()
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		failureCounter.Add(ctx, 1, opAttr, metric.WithAttributes(attribute.String("kind", Kind(err))))
	}
}
