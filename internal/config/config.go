// Package config builds the immutable configuration of the baikalctl server
// and of the bcc client. Values are layered: defaults, then the json5 config
// file and its local override, then the environment (backed by a dotenv
// file), then command line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"baikalctl/internal/certs"
	"baikalctl/lib/configutil"
	"baikalctl/lib/telemetry"

	"github.com/robfig/cron/v3"
)

const (
	DefaultFile   = "baikalctl.json5"
	DefaultDotEnv = ".env"
)

type Config struct {
	Address string `json:"address"`
	Port    int    `json:"port"`

	// AdminUsername and AdminPassword are used by scheduled resets, requests
	// carry their own credentials.
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
	APIKey        string `json:"api_key"`

	CaldavURL  string `json:"caldav_url"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`

	ProfileName       string `json:"profile_name"`
	ProfileDir        string `json:"profile_dir"`
	Headless          bool   `json:"headless"`
	Display           string `json:"display"`
	XvfbBin           string `json:"xvfb_bin"`
	InstallBrowser    bool   `json:"install_browser"`
	IgnoreHTTPSErrors bool   `json:"ignore_https_errors"`

	// BrowserTimeout and WizardTimeout are in seconds, NavigationRate in
	// navigations per second with 0 meaning unlimited.
	BrowserTimeout int     `json:"browser_timeout"`
	NavigationRate float64 `json:"navigation_rate"`
	WizardMaxSteps int     `json:"wizard_max_steps"`
	WizardTimeout  int     `json:"wizard_timeout"`

	ResetSchedule string `json:"reset_schedule"`
	Timezone      string `json:"timezone"`

	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`
	LogJSON  bool   `json:"log_json"`

	Otlp telemetry.OtlpConfig `json:"otlp"`
}

// domainURL builds a default service URL on a sibling host of this machine,
// "host.example.org" gives "<scheme>://<prefix>.example.org<path>".
func domainURL(scheme, prefix, path string) string {
	host := prefix
	if hostname, err := os.Hostname(); err == nil {
		if _, domain, ok := strings.Cut(hostname, "."); ok && domain != "" {
			host = prefix + "." + domain
		}
	}
	return scheme + "://" + host + path
}

func Defaults() Config {
	return Config{
		Address:        "127.0.0.1",
		Port:           8000,
		AdminUsername:  "admin",
		CaldavURL:      domainURL("http", "caldav", "/baikal"),
		ProfileName:    "default",
		Headless:       true,
		Display:        ":0",
		BrowserTimeout: 30,
		WizardMaxSteps: 10,
		WizardTimeout:  120,
		LogLevel:       "WARNING",
	}
}

var serverBindings = []binding[Config]{
	stringVar("ADDRESS", func(c *Config) *string { return &c.Address }),
	intVar("PORT", func(c *Config) *int { return &c.Port }),
	stringVar("ADMIN_USERNAME", func(c *Config) *string { return &c.AdminUsername }),
	secretVar("ADMIN_PASSWORD", func(c *Config) *string { return &c.AdminPassword }),
	secretVar("API_KEY", func(c *Config) *string { return &c.APIKey }),
	stringVar("CALDAV_URL", func(c *Config) *string { return &c.CaldavURL }),
	stringVar("CLIENT_CERT", func(c *Config) *string { return &c.ClientCert }),
	stringVar("CLIENT_KEY", func(c *Config) *string { return &c.ClientKey }),
	stringVar("PROFILE_NAME", func(c *Config) *string { return &c.ProfileName }),
	stringVar("PROFILE_DIR", func(c *Config) *string { return &c.ProfileDir }),
	boolVar("HEADLESS", func(c *Config) *bool { return &c.Headless }),
	stringVar("DISPLAY", func(c *Config) *string { return &c.Display }),
	stringVar("XVFB_BIN", func(c *Config) *string { return &c.XvfbBin }),
	boolVar("INSTALL_BROWSER", func(c *Config) *bool { return &c.InstallBrowser }),
	boolVar("IGNORE_HTTPS_ERRORS", func(c *Config) *bool { return &c.IgnoreHTTPSErrors }),
	intVar("BROWSER_TIMEOUT", func(c *Config) *int { return &c.BrowserTimeout }),
	floatVar("NAVIGATION_RATE", func(c *Config) *float64 { return &c.NavigationRate }),
	intVar("WIZARD_MAX_STEPS", func(c *Config) *int { return &c.WizardMaxSteps }),
	intVar("WIZARD_TIMEOUT", func(c *Config) *int { return &c.WizardTimeout }),
	stringVar("RESET_SCHEDULE", func(c *Config) *string { return &c.ResetSchedule }),
	stringVar("TIMEZONE", func(c *Config) *string { return &c.Timezone }),
	boolVar("DEBUG", func(c *Config) *bool { return &c.Debug }),
	stringVar("LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }),
	boolVar("LOG_JSON", func(c *Config) *bool { return &c.LogJSON }),
	stringVar("OTLP_TRACES_ENDPOINT", func(c *Config) *string { return &c.Otlp.Traces.HttpEndpoint }),
	stringVar("OTLP_METRICS_ENDPOINT", func(c *Config) *string { return &c.Otlp.Metrics.HttpEndpoint }),
}

// Load reads the server configuration from file (ignored when missing) and
// env on top of the defaults. Secrets are not resolved yet, see Resolve.
func Load(file string, env Environment) (Config, error) {
	cfg := Defaults()
	if file != "" {
		err := configutil.ReadInto(file, &cfg)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := applyEnvironment(&cfg, serverBindings, env); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve returns a copy of c with "@file" secrets read and every value
// checked.
func (c Config) Resolve() (Config, error) {
	var err error
	c.AdminPassword, err = configutil.ReadSecret(c.AdminPassword)
	if err != nil {
		return Config{}, fmt.Errorf("admin password: %w", err)
	}
	c.APIKey, err = configutil.ReadSecret(c.APIKey)
	if err != nil {
		return Config{}, fmt.Errorf("api key: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("api key is required"))
	}
	if err := validateURL(c.CaldavURL); err != nil {
		errs = append(errs, fmt.Errorf("caldav url: %w", err))
	}
	if err := validateClientCert(c.ClientCert, c.ClientKey); err != nil {
		errs = append(errs, err)
	}
	if c.BrowserTimeout <= 0 {
		errs = append(errs, errors.New("browser timeout must be positive"))
	}
	if c.NavigationRate < 0 {
		errs = append(errs, errors.New("navigation rate must not be negative"))
	}
	if c.WizardMaxSteps <= 0 {
		errs = append(errs, errors.New("wizard max steps must be positive"))
	}
	if c.WizardTimeout <= 0 {
		errs = append(errs, errors.New("wizard timeout must be positive"))
	}
	if c.ResetSchedule != "" {
		if _, err := cron.ParseStandard(c.ResetSchedule); err != nil {
			errs = append(errs, fmt.Errorf("reset schedule: %w", err))
		}
		if c.AdminPassword == "" {
			errs = append(errs, errors.New("reset schedule requires the admin password"))
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("timezone: %w", err))
		}
	}
	if _, err := telemetry.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) url", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// validateClientCert checks an optional certificate pair, a PKCS#12 bundle
// needs no separate key.
func validateClientCert(cert, key string) error {
	if cert == "" {
		if key != "" {
			return errors.New("client key given without client certificate")
		}
		return nil
	}
	if certs.IsPKCS12(cert) {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("client certificate: %w", err)
		}
		return nil
	}
	if key == "" {
		return errors.New("client certificate given without client key")
	}
	if err := certs.ValidatePEM(cert, certs.Certificate); err != nil {
		return fmt.Errorf("client certificate: %w", err)
	}
	if err := certs.ValidatePEM(key, certs.PrivateKey); err != nil {
		return fmt.Errorf("client key: %w", err)
	}
	return nil
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func (c Config) BrowserTimeoutDuration() time.Duration {
	return time.Duration(c.BrowserTimeout) * time.Second
}

func (c Config) WizardTimeoutDuration() time.Duration {
	return time.Duration(c.WizardTimeout) * time.Second
}

func (c Config) Telemetry() telemetry.Config {
	return telemetry.Config{Otlp: c.Otlp}
}

// Dump renders the configuration in dotenv format.
func (c Config) Dump(reveal bool) (string, error) {
	return dump(&c, serverBindings, reveal)
}
