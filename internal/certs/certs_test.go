package certs

import (
	"os"
	"path/filepath"
	"testing"

	"baikalctl/internal/certs/certstest"

	"github.com/stretchr/testify/require"
)

func TestValidatePEM(t *testing.T) {
	certFile, keyFile := certstest.WriteSelfSigned(t, "bcc-client")

	require.NoError(t, ValidatePEM(certFile, Certificate))
	require.NoError(t, ValidatePEM(keyFile, PrivateKey))
	require.NoError(t, ValidatePEM(keyFile, AnyKey))

	require.ErrorIs(t, ValidatePEM(certFile, PrivateKey), ErrWrongKind)
	require.ErrorIs(t, ValidatePEM(keyFile, Certificate), ErrWrongKind)
	require.ErrorIs(t, ValidatePEM(keyFile, PublicKey), ErrWrongKind)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	require.ErrorIs(t, ValidatePEM(garbage, Certificate), ErrNotPEM)

	require.ErrorIs(t, ValidatePEM(filepath.Join(t.TempDir(), "missing.pem"), Certificate), os.ErrNotExist)
}

func TestCommonName(t *testing.T) {
	certFile, keyFile := certstest.WriteSelfSigned(t, "bcc-client")

	cn, err := CommonName(certFile)
	require.NoError(t, err)
	require.Equal(t, "bcc-client", cn)

	_, err = CommonName(keyFile)
	require.ErrorIs(t, err, ErrNotPEM)

	_, err = CommonName(filepath.Join(t.TempDir(), "client.pem"))
	require.Error(t, err)
}

func TestIsPKCS12(t *testing.T) {
	require.True(t, IsPKCS12("/certs/client.p12"))
	require.True(t, IsPKCS12("client.PFX"))
	require.False(t, IsPKCS12("client.pem"))
}
