// Package clock abstracts the wall clock. OTP step selection, recovery token
// expiry and session issuance all read time through Clocker so tests can pin
// it to a step boundary.
package clock
