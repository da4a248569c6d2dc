package hash

import "strings"

// Hash hashes plaintext and verifies plaintext against a stored hash.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// Credential verifies an encoded password hash, choosing the algorithm from
// the hash prefix ($argon2id$ or the bcrypt $2a$/$2b$/$2y$ family).
type Credential struct {
	bcrypt   Hash
	argon2id Hash
}

// NewCredential returns a verifier that dispatches to bcrypt or argon2id.
func NewCredential(bcrypt, argon2id Hash) *Credential {
	return &Credential{bcrypt: bcrypt, argon2id: argon2id}
}

// Hash hashes plaintext with bcrypt.
func (c *Credential) Hash(plaintext string) ([]byte, error) {
	return c.bcrypt.Hash(plaintext)
}

// Verify reports whether plaintext matches hashed. Unknown formats never match.
func (c *Credential) Verify(hashed, plaintext string) bool {
	switch {
	case strings.HasPrefix(hashed, "$argon2id$"):
		return c.argon2id.Verify(hashed, plaintext)
	case strings.HasPrefix(hashed, "$2a$"), strings.HasPrefix(hashed, "$2b$"), strings.HasPrefix(hashed, "$2y$"):
		return c.bcrypt.Verify(hashed, plaintext)
	default:
		return false
	}
}
