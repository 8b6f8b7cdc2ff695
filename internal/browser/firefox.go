package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"baikalctl/internal/certs"
	"baikalctl/internal/components/assert"
	"baikalctl/internal/components/telemetry"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/time/rate"
)

const (
	report_firefox_launch = "firefox.launch"
	report_firefox_get    = "firefox.get"
	report_firefox_close  = "firefox.close"
)

const DefaultTimeout = 30 * time.Second

// FirefoxOptions configures FirefoxLauncher.
type FirefoxOptions struct {
	// BaseURL is the console address, its origin receives the client certificate.
	BaseURL string
	// ClientCert is a PEM certificate (with ClientKey) or a PKCS#12 bundle.
	ClientCert string
	ClientKey  string
	// ProfileDir keeps cookies and preferences between launches when set.
	ProfileDir string
	Headless   bool
	// Display is exported as DISPLAY when not headless.
	Display string
	Timeout time.Duration
	// NavigationRate caps page loads per second, zero means unlimited.
	NavigationRate    float64
	IgnoreHTTPSErrors bool
	// Install downloads the playwright driver and Firefox before the first launch.
	Install bool
}

// FirefoxLauncher launches Firefox through playwright.
type FirefoxLauncher struct {
	opts FirefoxOptions
	tel  telemetry.API

	installOnce sync.Once
	installErr  error
}

func NewFirefoxLauncher(opts FirefoxOptions, tel telemetry.API) *FirefoxLauncher {
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(opts.BaseURL, "base url")
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &FirefoxLauncher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("browser", tel),
	}
}

func (l *FirefoxLauncher) runOptions() *playwright.RunOptions {
	return &playwright.RunOptions{
		Browsers: []string{"firefox"},
		Verbose:  false,
	}
}

func (l *FirefoxLauncher) clientCertificates() ([]playwright.ClientCertificate, error) {
	if l.opts.ClientCert == "" {
		return nil, nil
	}
	u, err := url.Parse(l.opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	cert := playwright.ClientCertificate{
		Origin: u.Scheme + "://" + u.Host,
	}
	if certs.IsPKCS12(l.opts.ClientCert) {
		cert.PfxPath = playwright.String(l.opts.ClientCert)
		return []playwright.ClientCertificate{cert}, nil
	}
	cert.CertPath = playwright.String(l.opts.ClientCert)
	if l.opts.ClientKey != "" {
		cert.KeyPath = playwright.String(l.opts.ClientKey)
	}
	return []playwright.ClientCertificate{cert}, nil
}

func (l *FirefoxLauncher) env() map[string]string {
	if l.opts.Headless || l.opts.Display == "" {
		return nil
	}
	return map[string]string{"DISPLAY": l.opts.Display}
}

var firefoxPrefs = map[string]any{
	"security.default_personal_cert": "Select Automatically",
}

// Launch starts playwright, Firefox and one page.
func (l *FirefoxLauncher) Launch(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if l.opts.Install {
		l.installOnce.Do(func() {
			l.installErr = playwright.Install(l.runOptions())
		})
		if l.installErr != nil {
			l.tel.ReportBroken(report_firefox_launch, l.installErr)
			return nil, fmt.Errorf("install firefox: %w", l.installErr)
		}
	}

	clientCerts, err := l.clientCertificates()
	if err != nil {
		return nil, err
	}

	pw, err := playwright.Run(l.runOptions())
	if err != nil {
		l.tel.ReportBroken(report_firefox_launch, err)
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	timeoutMs := playwright.Float(float64(l.opts.Timeout.Milliseconds()))

	var (
		browser  playwright.Browser
		bcontext playwright.BrowserContext
	)
	if l.opts.ProfileDir != "" {
		bcontext, err = pw.Firefox.LaunchPersistentContext(l.opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:           playwright.Bool(l.opts.Headless),
			FirefoxUserPrefs:   firefoxPrefs,
			Env:                l.env(),
			Timeout:            timeoutMs,
			ClientCertificates: clientCerts,
			IgnoreHttpsErrors:  playwright.Bool(l.opts.IgnoreHTTPSErrors),
		})
	} else {
		browser, err = pw.Firefox.Launch(playwright.BrowserTypeLaunchOptions{
			Headless:         playwright.Bool(l.opts.Headless),
			FirefoxUserPrefs: firefoxPrefs,
			Env:              l.env(),
			Timeout:          timeoutMs,
		})
		if err == nil {
			bcontext, err = browser.NewContext(playwright.BrowserNewContextOptions{
				ClientCertificates: clientCerts,
				IgnoreHttpsErrors:  playwright.Bool(l.opts.IgnoreHTTPSErrors),
			})
		}
	}
	if err != nil {
		l.tel.ReportBroken(report_firefox_launch, err)
		_ = pw.Stop()
		return nil, fmt.Errorf("launch firefox: %w", err)
	}

	page, err := bcontext.NewPage()
	if err != nil {
		l.tel.ReportBroken(report_firefox_launch, err)
		_ = bcontext.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(l.opts.Timeout.Milliseconds()))

	limit := rate.Inf
	if l.opts.NavigationRate > 0 {
		limit = rate.Limit(l.opts.NavigationRate)
	}

	description := "firefox"
	if browser != nil {
		description = "firefox " + browser.Version()
	}
	if l.opts.ProfileDir != "" {
		description += " profile=" + l.opts.ProfileDir
	}
	if l.opts.Headless {
		description += " headless"
	}

	l.tel.ReportDebug("launched", description)

	return &firefoxDriver{
		pw:          pw,
		browser:     browser,
		context:     bcontext,
		page:        page,
		limiter:     rate.NewLimiter(limit, 1),
		tel:         l.tel,
		description: description,
	}, nil
}

type firefoxDriver struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	limiter     *rate.Limiter
	tel         telemetry.API
	description string

	mu     sync.Mutex
	closed bool
}

func (d *firefoxDriver) Get(ctx context.Context, url string) error {
	if d.isClosed() {
		return ErrClosed
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.tel.ReportDebug("GET", url)
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		d.tel.ReportWarning(report_firefox_get, err, url)
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (d *firefoxDriver) Title() (string, error) {
	return d.page.Title()
}

func (d *firefoxDriver) URL() string {
	return d.page.URL()
}

func (d *firefoxDriver) Content() (string, error) {
	return d.page.Content()
}

func (d *firefoxDriver) FindAll(selector string) ([]Element, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	return wrapLocators(d.page, d.page.Locator(selector))
}

func (d *firefoxDriver) Describe() string {
	return d.description
}

func (d *firefoxDriver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *firefoxDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []string
	if err := d.context.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		err := fmt.Errorf("close firefox: %s", strings.Join(errs, "; "))
		d.tel.ReportWarning(report_firefox_close, err)
		return err
	}
	return nil
}

func wrapLocators(page playwright.Page, locator playwright.Locator) ([]Element, error) {
	all, err := locator.All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(all))
	for i, l := range all {
		out[i] = firefoxElement{page: page, locator: l}
	}
	return out, nil
}

type firefoxElement struct {
	page    playwright.Page
	locator playwright.Locator
}

func (e firefoxElement) Text() (string, error) {
	text, err := e.locator.InnerText()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e firefoxElement) Attribute(name string) (string, error) {
	return e.locator.GetAttribute(name)
}

func (e firefoxElement) Click() error {
	if err := e.locator.Click(); err != nil {
		return err
	}
	return e.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateLoad,
	})
}

func (e firefoxElement) Clear() error {
	return e.locator.Clear()
}

func (e firefoxElement) Type(text string) error {
	return e.locator.PressSequentially(text)
}

func (e firefoxElement) SelectByLabel(label string) error {
	_, err := e.locator.SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{label},
	})
	return err
}

func (e firefoxElement) FindAll(selector string) ([]Element, error) {
	return wrapLocators(e.page, e.locator.Locator(selector))
}
