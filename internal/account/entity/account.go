package entity

import "time"

type Account struct {
	ID             int64
	Identifier     string
	Secret         []byte // sealed OTP seed
	RecoveryTokens []RecoveryToken
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecoveryToken stores the digest of an issued recovery token, never the token.
type RecoveryToken struct {
	Hash     string    `json:"hash"`
	IssuedAt time.Time `json:"issued_at"`
}

type EnrollmentArtifact struct {
	URI    string
	Secret string
	QRCode string // data:image/png;base64,...
}

type SessionToken struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}
