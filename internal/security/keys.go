package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when key material cannot be decoded or is of an
// unsupported type.
var ErrInvalidKey = errors.New("invalid key")

// LoadPEM resolves key material from configuration. The value may be inline
// PEM or a path to a PEM file. Inline values often arrive through environment
// variables with literal "\n" sequences, so those are normalized to real
// newlines first.
func LoadPEM(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(v, "-----BEGIN") {
		return []byte(strings.ReplaceAll(v, `\n`, "\n")), nil
	}
	return os.ReadFile(v)
}

func decodeBlock(v string) (*pem.Block, error) {
	raw, err := LoadPEM(v)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey decodes an RSA or ECDSA private key from inline PEM or a
// file path. PKCS#1, PKCS#8 and SEC 1 encodings are accepted.
func ParsePrivateKey(v string) (crypto.Signer, error) {
	block, err := decodeBlock(v)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := parsed.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	}
	return nil, ErrInvalidKey
}

// ParsePublicKey decodes an RSA or ECDSA public key from inline PEM or a
// file path.
func ParsePublicKey(v string) (crypto.PublicKey, error) {
	block, err := decodeBlock(v)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	return nil, ErrInvalidKey
}

// KeyAlg picks the JWT signing algorithm that matches the key type: RS256 for
// RSA, ES256 for ECDSA. Unsupported types yield an empty string.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	}
	return ""
}
