package otp

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
)

func newTestTOTP() *TOTP {
	return NewTOTP("gotp", 30, 1, otp.DigitsSix)
}

func TestTOTP_Generate(t *testing.T) {
	o := newTestTOTP()

	secret, uri, err := o.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// 20 bytes encode to 32 base32 characters without padding
	if len(secret) != 32 {
		t.Fatalf("secret length = %d, want 32", len(secret))
	}

	u, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if !strings.Contains(u.Path, "gotp:a@x.com") {
		t.Fatalf("uri path %q does not carry issuer and account", u.Path)
	}
	q := u.Query()
	if q.Get("secret") != secret || q.Get("issuer") != "gotp" || q.Get("period") != "30" || q.Get("digits") != "6" {
		t.Fatalf("unexpected uri query %v", q)
	}

	other, _, err := o.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if other == secret {
		t.Fatal("two generated secrets must differ")
	}
}

func TestTOTP_Validate_Window(t *testing.T) {
	o := newTestTOTP()
	secret, _, err := o.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	at := time.Date(2025, 1, 1, 12, 0, 15, 0, time.UTC)
	code, err := o.GenerateCode(secret, at)
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "same step", at: at, want: true},
		{name: "one step later", at: at.Add(30 * time.Second), want: true},
		{name: "one step earlier", at: at.Add(-30 * time.Second), want: true},
		{name: "two steps later", at: at.Add(60 * time.Second), want: false},
		{name: "two steps earlier", at: at.Add(-60 * time.Second), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.Validate(code, secret, tt.at); got != tt.want {
				t.Fatalf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTOTP_Validate_FailsClosed(t *testing.T) {
	o := newTestTOTP()
	secret, _, err := o.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	now := time.Now()

	tests := []struct {
		name   string
		code   string
		secret string
	}{
		{name: "empty code", code: "", secret: secret},
		{name: "non numeric", code: "12a456", secret: secret},
		{name: "too short", code: "12345", secret: secret},
		{name: "too long", code: "1234567", secret: secret},
		{name: "malformed secret", code: "123456", secret: "not base32!!"},
		{name: "empty secret", code: "123456", secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if o.Validate(tt.code, tt.secret, now) {
				t.Fatal("Validate() = true, want false")
			}
		})
	}
}

func TestTOTP_Match_ReportsStep(t *testing.T) {
	o := newTestTOTP()
	secret, _, err := o.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	at := time.Unix(1_700_000_010, 0)
	code, err := o.GenerateCode(secret, at)
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}

	step, ok := o.Match(code, secret, at.Add(30*time.Second))
	if !ok {
		t.Fatal("Match() ok = false, want true")
	}
	if want := uint64(at.Unix()) / 30; step != want {
		t.Fatalf("Match() step = %d, want %d", step, want)
	}
}

func TestTOTP_Image(t *testing.T) {
	o := newTestTOTP()
	_, uri, err := o.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	img, err := o.Image(uri, 200, 200)
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if len(img) < 8 || string(img[1:4]) != "PNG" {
		t.Fatal("Image() did not return a PNG")
	}

	if _, err := o.Image(uri, 0, 200); err == nil {
		t.Fatal("Image() with zero width must fail")
	}
}
