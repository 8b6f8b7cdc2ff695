// Package certs checks the client certificate files used for mutual TLS with
// the admin console and the REST service.
package certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Kind int

const (
	Certificate Kind = iota
	PrivateKey
	PublicKey
	AnyKey
)

func (k Kind) String() string {
	switch k {
	case Certificate:
		return "certificate"
	case PrivateKey:
		return "private key"
	case PublicKey:
		return "public key"
	case AnyKey:
		return "key"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrNotPEM       = errors.New("not PEM format")
	ErrWrongKind    = errors.New("unexpected PEM block type")
	ErrNoCommonName = errors.New("certificate subject has no common name")
)

func (k Kind) accepts(blockType string) bool {
	switch k {
	case Certificate:
		return blockType == "CERTIFICATE"
	case PrivateKey:
		return strings.HasSuffix(blockType, "PRIVATE KEY")
	case PublicKey:
		return strings.HasSuffix(blockType, "PUBLIC KEY")
	case AnyKey:
		return strings.HasSuffix(blockType, " KEY")
	}
	return false
}

// IsPKCS12 reports whether filename looks like a PKCS#12 bundle, which holds
// both certificate and key.
func IsPKCS12(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".p12", ".pfx":
		return true
	}
	return false
}

// ValidatePEM returns an error unless filename holds at least one PEM block of
// the given kind.
func ValidatePEM(filename string, kind Kind) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	rest := content
	found := false
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		found = true
		if kind.accepts(block.Type) {
			return nil
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", filename, ErrNotPEM)
	}
	return fmt.Errorf("%s is not a %s: %w", filename, kind, ErrWrongKind)
}

// CommonName returns the subject CN of the first certificate in filename.
func CommonName(filename string) (string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	rest := content
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return "", fmt.Errorf("%s: %w", filename, ErrNotPEM)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("%s: %w", filename, err)
		}
		if cert.Subject.CommonName == "" {
			return "", fmt.Errorf("%s: %w", filename, ErrNoCommonName)
		}
		return cert.Subject.CommonName, nil
	}
}
