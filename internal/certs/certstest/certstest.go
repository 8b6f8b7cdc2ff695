// Package certstest writes throwaway certificates for tests.
package certstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteSelfSigned writes a self-signed client certificate and its key into
// t.TempDir() and returns both paths.
func WriteSelfSigned(t testing.TB, commonName string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDer, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "client.pem")
	keyFile = filepath.Join(dir, "client.key")
	write(t, certFile, &pem.Block{Type: "CERTIFICATE", Bytes: der})
	write(t, keyFile, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDer})
	return certFile, keyFile
}

func write(t testing.TB, filename string, block *pem.Block) {
	err := os.WriteFile(filename, pem.EncodeToMemory(block), 0o600)
	if err != nil {
		t.Fatal(err)
	}
}

// WriteCertificate writes a DER certificate, e.g. the one of an
// httptest.Server, as PEM into t.TempDir() and returns its path.
func WriteCertificate(t testing.TB, der []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "ca.pem")
	write(t, filename, &pem.Block{Type: "CERTIFICATE", Bytes: der})
	return filename
}
