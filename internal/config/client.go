package config

import (
	"errors"
	"fmt"
	"os"

	"baikalctl/internal/certs"
	"baikalctl/internal/models"
	"baikalctl/lib/configutil"
	"baikalctl/lib/telemetry"
)

const DefaultClientFile = "bcc.json5"

// ClientConfig configures the bcc command line client.
type ClientConfig struct {
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	APIKey     string `json:"api_key"`
	ClientCert string `json:"cert"`
	ClientKey  string `json:"key"`
	// CACert verifies the server instead of the system roots when set.
	CACert string `json:"ca_cert"`
	// Timeout is in seconds and covers a whole request, the server may drive
	// the browser through several pages to answer.
	Timeout  int    `json:"timeout"`
	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`
}

func ClientDefaults() ClientConfig {
	return ClientConfig{
		URL:        domainURL("https", "mabctl", "/baikalctl"),
		Username:   "admin",
		ClientCert: "/etc/ssl/client.pem",
		ClientKey:  "/etc/ssl/client.key",
		Timeout:    300,
		LogLevel:   "WARNING",
	}
}

var clientBindings = []binding[ClientConfig]{
	stringVar("BCC_URL", func(c *ClientConfig) *string { return &c.URL }),
	stringVar("BCC_USERNAME", func(c *ClientConfig) *string { return &c.Username }),
	secretVar("BCC_PASSWORD", func(c *ClientConfig) *string { return &c.Password }),
	secretVar("BCC_API_KEY", func(c *ClientConfig) *string { return &c.APIKey }),
	stringVar("BCC_CERT", func(c *ClientConfig) *string { return &c.ClientCert }),
	stringVar("BCC_KEY", func(c *ClientConfig) *string { return &c.ClientKey }),
	stringVar("BCC_CA_CERT", func(c *ClientConfig) *string { return &c.CACert }),
	intVar("BCC_TIMEOUT", func(c *ClientConfig) *int { return &c.Timeout }),
	boolVar("DEBUG", func(c *ClientConfig) *bool { return &c.Debug }),
	stringVar("LOG_LEVEL", func(c *ClientConfig) *string { return &c.LogLevel }),
}

// LoadClient reads the client configuration. The config file is searched
// for from the working directory upwards when searchUp is set.
func LoadClient(file string, searchUp bool, env Environment) (ClientConfig, error) {
	cfg := ClientDefaults()
	if file != "" {
		var err error
		if searchUp {
			_, err = configutil.ReadRecursively(file, &cfg)
		} else {
			err = configutil.ReadInto(file, &cfg)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return ClientConfig{}, err
		}
	}
	if err := applyEnvironment(&cfg, clientBindings, env); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// Resolve returns a copy of c with "@file" secrets read and every value
// checked.
func (c ClientConfig) Resolve() (ClientConfig, error) {
	var err error
	c.Password, err = configutil.ReadSecret(c.Password)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("password: %w", err)
	}
	c.APIKey, err = configutil.ReadSecret(c.APIKey)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("api key: %w", err)
	}
	if err := c.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return c, nil
}

func (c ClientConfig) Validate() error {
	var errs []error
	if err := validateURL(c.URL); err != nil {
		errs = append(errs, fmt.Errorf("url: %w", err))
	}
	account := c.Account()
	if err := models.Prepare(&account); err != nil {
		errs = append(errs, err)
	}
	if err := validateClientCert(c.ClientCert, c.ClientKey); err != nil {
		errs = append(errs, err)
	}
	if c.CACert != "" {
		if err := certs.ValidatePEM(c.CACert, certs.Certificate); err != nil {
			errs = append(errs, fmt.Errorf("ca certificate: %w", err))
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if _, err := telemetry.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c ClientConfig) Account() models.Account {
	return models.Account{Username: c.Username, Password: c.Password}
}

func (c ClientConfig) Dump(reveal bool) (string, error) {
	return dump(&c, clientBindings, reveal)
}
