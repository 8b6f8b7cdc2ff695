package browser

import (
	"context"
	"testing"

	"baikalctl/internal/components/telemetry"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
)

func TestClientCertificates(t *testing.T) {
	tel := &telemetry.Recorder{}

	launcher := NewFirefoxLauncher(FirefoxOptions{BaseURL: "https://dav.example.org:8443/baikal"}, tel)
	certs, err := launcher.clientCertificates()
	require.NoError(t, err)
	require.Empty(t, certs)

	launcher = NewFirefoxLauncher(FirefoxOptions{
		BaseURL:    "https://dav.example.org:8443/baikal",
		ClientCert: "/certs/client.pem",
		ClientKey:  "/certs/client.key",
	}, tel)
	certs, err = launcher.clientCertificates()
	require.NoError(t, err)
	require.Equal(t, []playwright.ClientCertificate{{
		Origin:   "https://dav.example.org:8443",
		CertPath: playwright.String("/certs/client.pem"),
		KeyPath:  playwright.String("/certs/client.key"),
	}}, certs)

	launcher = NewFirefoxLauncher(FirefoxOptions{
		BaseURL:    "https://dav.example.org/baikal",
		ClientCert: "/certs/client.p12",
	}, tel)
	certs, err = launcher.clientCertificates()
	require.NoError(t, err)
	require.Len(t, certs, 1)
	require.Equal(t, "/certs/client.p12", *certs[0].PfxPath)
	require.Nil(t, certs[0].CertPath)
}

func TestDisplayEnv(t *testing.T) {
	tel := &telemetry.Recorder{}

	launcher := NewFirefoxLauncher(FirefoxOptions{BaseURL: "http://x.test", Headless: true, Display: ":99"}, tel)
	require.Nil(t, launcher.env())

	launcher = NewFirefoxLauncher(FirefoxOptions{BaseURL: "http://x.test", Display: ":99"}, tel)
	require.Equal(t, map[string]string{"DISPLAY": ":99"}, launcher.env())
	require.Equal(t, DefaultTimeout, launcher.opts.Timeout)
}

func TestLaunchCancelled(t *testing.T) {
	launcher := NewFirefoxLauncher(FirefoxOptions{BaseURL: "http://x.test"}, &telemetry.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := launcher.Launch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
