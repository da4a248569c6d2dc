// Package mail delivers plain notification messages such as one-time codes and
// recovery tokens.
//
// Use cases depend on the Mail interface; SMTP is the production transport and
// Log is a development transport that records the envelope without the body.
package mail
