// Package otp implements time-based one-time passwords (RFC 6238) for
// authenticator-app enrollment and login.
//
// Secrets are 20 random bytes, codes are 6 digits on a 30 second step, and a
// code is accepted for the current step and one step either side.
package otp
