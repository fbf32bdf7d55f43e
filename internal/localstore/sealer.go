package localstore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedPrefix = "sealed:v1:"

var ErrSealedValue = errors.New("value is sealed but no seal secret is configured")

type Sealer interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

// Plaintext stores values as-is. It refuses to open sealed values so a
// missing secret is noticed instead of leaking ciphertext as a token.
type Plaintext struct{}

func (Plaintext) Seal(plain string) (string, error) { return plain, nil }

func (Plaintext) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", ErrSealedValue
	}
	return stored, nil
}

// AEADSealer encrypts values with XChaCha20-Poly1305 under a key derived
// from the configured secret. Values written before sealing was enabled are
// returned unchanged.
type AEADSealer struct {
	aead cipher.AEAD
}

func NewAEADSealer(secret string) (*AEADSealer, error) {
	if secret == "" {
		return nil, errors.New("seal secret is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte("oncoscan-localstore"), []byte("entry-value-v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &AEADSealer{aead: aead}, nil
}

func (s *AEADSealer) Seal(plain string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *AEADSealer) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("sealed value is truncated")
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed value: %w", err)
	}
	return string(plain), nil
}
