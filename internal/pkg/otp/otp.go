package otp

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// SecretSize is the number of random bytes in a generated secret.
const SecretSize = 20

// ErrInvalidImageSize is returned when a QR image is requested with a non-positive size.
var ErrInvalidImageSize = errors.New("otp: image size must be positive")

// OTP defines the TOTP operations used by the account service.
type OTP interface {
	// Generate creates a secret and enrollment URI for an account name.
	Generate(accountName string) (secret string, uri string, err error)
	// Validate reports whether code is accepted at the given time.
	Validate(code, secret string, at time.Time) bool
	// Match is Validate that also returns the time step the code belongs to.
	Match(code, secret string, at time.Time) (step uint64, ok bool)
	// GenerateCode returns the code for the step containing at.
	GenerateCode(secret string, at time.Time) (string, error)
	// Image renders an enrollment URI as a PNG QR code.
	Image(uri string, width, height int) ([]byte, error)
}

// TOTP implements OTP on top of github.com/pquerna/otp.
type TOTP struct {
	issuer string
	period uint
	skew   uint
	digits otp.Digits
}

// NewTOTP constructs a TOTP instance.
//
// Digits other than 6 or 8 fall back to 6, and a zero period falls back to 30
// seconds. A zero skew is kept as zero, which accepts the current step only.
func NewTOTP(issuer string, period, skew uint, digits otp.Digits) *TOTP {
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}

	if period == 0 {
		period = 30
	}

	return &TOTP{
		issuer: issuer,
		period: period,
		skew:   skew,
		digits: digits,
	}
}

// Generate creates a fresh secret and its enrollment URI.
func (o *TOTP) Generate(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      o.issuer,
		AccountName: accountName,
		Period:      o.period,
		SecretSize:  SecretSize,
		Digits:      o.digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("otp: generate key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// Validate reports whether code matches the current step or one within the skew.
// Malformed secrets and non-numeric codes fail closed.
func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	_, ok := o.Match(code, secret, at)
	return ok
}

// Match returns the step that code belongs to when it is accepted at time at.
func (o *TOTP) Match(code, secret string, at time.Time) (uint64, bool) {
	if secret == "" || !o.wellFormed(code) {
		return 0, false
	}

	current := uint64(at.Unix()) / uint64(o.period)

	var (
		matched uint64
		found   bool
	)
	for i := -int64(o.skew); i <= int64(o.skew); i++ {
		step := int64(current) + i
		if step < 0 {
			continue
		}

		want, err := o.codeAt(secret, uint64(step))
		if err != nil {
			return 0, false
		}

		// no early exit: every step in the window is compared
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 && !found {
			matched = uint64(step)
			found = true
		}
	}

	return matched, found
}

// GenerateCode returns the code for the step containing at.
func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, o.opts())
}

// Image renders uri as a PNG QR code.
func (o *TOTP) Image(uri string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidImageSize
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("otp: parse uri: %w", err)
	}

	img, err := key.Image(width, height)
	if err != nil {
		return nil, fmt.Errorf("otp: render qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("otp: encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func (o *TOTP) codeAt(secret string, step uint64) (string, error) {
	at := time.Unix(int64(step*uint64(o.period)), 0).UTC()
	return totp.GenerateCodeCustom(secret, at, o.opts())
}

func (o *TOTP) wellFormed(code string) bool {
	if len(code) != o.digits.Length() {
		return false
	}

	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (o *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Skew:      o.skew,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}
