package console

import (
	"context"

	"baikalctl/internal/certs"
	"baikalctl/internal/models"
	"baikalctl/internal/version"

	"github.com/dustin/go-humanize"
)

const report_admin_status = "admin.status"

// Reset closes the browser and logs account in on a fresh one.
func (s *Session) Reset(ctx context.Context, account models.Account) (message string, err error) {
	ctx, done := s.observe(ctx, "reset")
	defer func() { done(err) }()

	s.tel.ReportDebug("reset")
	if err := s.Shutdown(ctx); err != nil {
		return "", err
	}
	if err := s.Login(ctx, account); err != nil {
		return "", err
	}
	s.resetTime = s.time.Now()
	return "server reset", nil
}

// Status tries to log account in and describes the session. A failed login is
// reported in Status.Login, not returned.
func (s *Session) Status(ctx context.Context, account models.Account) models.Status {
	ctx, done := s.observe(ctx, "status")

	login := "success"
	loginErr := s.Login(ctx, account)
	if loginErr != nil {
		s.tel.ReportWarning(report_admin_status, loginErr)
		login = "failed: " + loginErr.Error()
	}
	done(loginErr)

	driver := "none"
	if s.driver != nil {
		driver = s.driver.Describe()
	}
	reset := "never"
	if !s.resetTime.IsZero() {
		reset = humanize.RelTime(s.resetTime, s.time.Now(), "ago", "from now")
	}
	certificates := []string{}
	if s.clientCert != "" && !certs.IsPKCS12(s.clientCert) {
		cn, err := certs.CommonName(s.clientCert)
		if err != nil {
			s.tel.ReportWarning(report_admin_status, err)
		} else {
			certificates = append(certificates, cn)
		}
	}
	ver := s.version
	if ver == "" {
		ver = version.Version
	}

	return models.Status{
		Name:              version.Name,
		Version:           ver,
		Driver:            driver,
		URL:               s.baseURL,
		Uptime:            s.Uptime(),
		Reset:             reset,
		Profile:           s.profileName,
		Certificates:      certificates,
		CertificateLoaded: s.clientCert,
		Login:             login,
	}
}

// Uptime renders the session age, e.g. "3 minutes ago".
func (s *Session) Uptime() string {
	return humanize.RelTime(s.startTime, s.time.Now(), "ago", "from now")
}
