// Package hash hashes and verifies secrets that must never be stored in the
// clear: recovery tokens (keyed HMAC) and the operator credential that gates
// account resets (bcrypt or Argon2id).
//
// Every Verify implementation compares in constant time.
package hash
