package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the key length accepted by every cipher of this package.
const KeySize = 32

var (
	// ErrKeySize is returned for keys that are not KeySize bytes long.
	ErrKeySize = fmt.Errorf("adaptive: key must be %d bytes", KeySize)

	// ErrShortCiphertext is returned when the input cannot even hold a nonce.
	ErrShortCiphertext = errors.New("adaptive: ciphertext too short")
)

// Cipher provides authenticated encryption.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt seals plaintext bound to additionalData.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens a sealed value produced by Encrypt with the same additionalData.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
}

// New creates a cipher, picking the algorithm for the running architecture.
func New(key []byte) (Cipher, error) {
	if hardwareAES() {
		return NewWithType(key, CipherAESGCM)
	}
	return NewWithType(key, CipherChaCha20)
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch cipherType {
	case CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("adaptive: unknown cipher type %q", cipherType)
	}
	if err != nil {
		return nil, fmt.Errorf("adaptive: init %s: %w", cipherType, err)
	}

	return &sealer{kind: cipherType, aead: aead}, nil
}

// hardwareAES reports whether crypto/aes runs on CPU instructions here.
func hardwareAES() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return true
	default:
		return false
	}
}

type sealer struct {
	kind CipherType
	aead cipher.AEAD
}

func (s *sealer) Type() CipherType { return s.kind }

func (s *sealer) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (s *sealer) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(ciphertext) < n+s.aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	return s.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}

// SealString encrypts a string and returns it base64 encoded.
func SealString(c Cipher, plaintext, additionalData string) (string, error) {
	sealed, err := c.Encrypt([]byte(plaintext), []byte(additionalData))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func OpenString(c Cipher, sealed, additionalData string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("adaptive: decode: %w", err)
	}
	plain, err := c.Decrypt(raw, []byte(additionalData))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
