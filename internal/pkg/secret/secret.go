// Package secret seals OTP seeds at rest with AES-256-GCM.
//
// Every ciphertext is bound to a Scope through the GCM additional data, so a
// sealed seed copied onto another account fails to open.
package secret

import "fmt"

// Purpose names what a sealed value is used for.
type Purpose string

// PurposeOTPSeed scopes sealing to TOTP seeds.
const PurposeOTPSeed Purpose = "otp_seed"

// Scope binds a ciphertext to its owner.
type Scope struct {
	// Identifier is the account identifier owning the value.
	Identifier string
	// Purpose is the sealing purpose.
	Purpose Purpose
}

func (s Scope) canonical() string {
	return fmt.Sprintf("identifier=%s\npurpose=%s\n", s.Identifier, s.Purpose)
}

// Sealer encrypts and decrypts values for a scope.
type Sealer interface {
	Seal(plaintext []byte, scope Scope) ([]byte, error)
	Open(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider supplies the 32-byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// StaticKey returns the same key for every scope.
type StaticKey []byte

// Key returns a copy of the static key.
func (k StaticKey) Key(_ Scope) ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrMissingKey
	}

	out := make([]byte, len(k))
	copy(out, k)
	return out, nil
}
