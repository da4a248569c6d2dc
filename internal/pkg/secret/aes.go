package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// Sealed layout: 2-byte big-endian version, 12-byte nonce, GCM output.
const (
	sealVersion uint16 = 1
	nonceSize          = 12
	keySize            = 32
	headerSize         = 2 + nonceSize
)

var (
	// ErrNotConfigured indicates a missing key provider.
	ErrNotConfigured = errors.New("secret: sealer not configured")
	// ErrEmptyPlaintext indicates an empty plaintext input.
	ErrEmptyPlaintext = errors.New("secret: plaintext is empty")
	// ErrInvalidKeyLength indicates a key that is not 32 bytes.
	ErrInvalidKeyLength = errors.New("secret: invalid key length")
	// ErrCiphertextTooShort indicates a truncated ciphertext.
	ErrCiphertextTooShort = errors.New("secret: ciphertext too short")
	// ErrUnsupportedVersion indicates an unknown ciphertext version.
	ErrUnsupportedVersion = errors.New("secret: unsupported ciphertext version")
	// ErrOpenFailed hides whether the key, scope or payload was wrong.
	ErrOpenFailed = errors.New("secret: open failed")
	// ErrMissingKey indicates an empty static key.
	ErrMissingKey = errors.New("secret: missing key")
)

// AESGCM implements Sealer with AES-256-GCM.
type AESGCM struct {
	keys KeyProvider
}

// NewAESGCM constructs an AES-256-GCM sealer.
func NewAESGCM(keys KeyProvider) *AESGCM {
	return &AESGCM{keys: keys}
}

// Seal encrypts plaintext bound to scope.
func (a *AESGCM) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}

	gcm, err := a.aead(scope)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out[:2], sealVersion)
	if _, err := rand.Read(out[2:headerSize]); err != nil {
		return nil, fmt.Errorf("secret: nonce: %w", err)
	}

	return gcm.Seal(out, out[2:headerSize], plaintext, additionalData(scope)), nil
}

// Open decrypts a value sealed for scope.
func (a *AESGCM) Open(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) <= headerSize {
		return nil, ErrCiphertextTooShort
	}

	if v := binary.BigEndian.Uint16(ciphertext[:2]); v != sealVersion {
		return nil, fmt.Errorf("secret: version %d: %w", v, ErrUnsupportedVersion)
	}

	gcm, err := a.aead(scope)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, ciphertext[2:headerSize], ciphertext[headerSize:], additionalData(scope))
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plain, nil
}

func (a *AESGCM) aead(scope Scope) (cipher.AEAD, error) {
	if a == nil || a.keys == nil {
		return nil, ErrNotConfigured
	}

	key, err := a.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("secret: key provider: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("secret: key is %d bytes, want %d: %w", len(key), keySize, ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secret: aes: %w", err)
	}

	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// additionalData hashes the scope so the AAD has a fixed length.
func additionalData(s Scope) []byte {
	sum := sha256.Sum256([]byte(s.canonical()))
	return sum[:]
}
