package inbound

import (
	"net/http"
	"time"
)

// headerAdminKey carries the operator credential for reset requests.
const headerAdminKey = "X-Admin-Key"

type RegisterRequest struct {
	Identifier string `json:"identifier"`
}

type EnrollmentResponse struct {
	URI    string `json:"uri"`
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

type RegisterResponse struct {
	Identifier string             `json:"identifier"`
	Enrollment EnrollmentResponse `json:"enrollment"`
}

func (RegisterResponse) StatusCode() int { return http.StatusCreated }

func (RegisterResponse) Message() string {
	return "Account registered. Scan the QR code with your authenticator app."
}

type AuthenticateRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

type AuthenticateResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type SendCodeRequest struct {
	Identifier string `json:"identifier"`
}

type SendCodeResponse struct{}

func (SendCodeResponse) Message() string {
	return "If an account with that identifier exists, we have sent the current code."
}

type ResetRequestRequest struct {
	Identifier string `json:"identifier"`
}

type ResetRequestResponse struct{}

func (ResetRequestResponse) Message() string {
	return "Recovery token sent."
}

type ResetCompleteRequest struct {
	Identifier    string `json:"identifier"`
	RecoveryToken string `json:"recovery_token"`
}

type ResetCompleteResponse struct {
	Identifier string             `json:"identifier"`
	Enrollment EnrollmentResponse `json:"enrollment"`
}

func (ResetCompleteResponse) Message() string {
	return "OTP secret rotated. Enroll the new secret in your authenticator app."
}

type SessionResponse struct {
	Identifier string    `json:"identifier"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
