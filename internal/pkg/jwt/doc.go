// Package jwt issues and verifies the HS512 session tokens handed out after a
// successful one-time password check, and carries verified claims through a
// request context.
package jwt
