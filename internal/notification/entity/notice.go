package entity

import "time"

type TriggerKey string

const (
	TriggerKeyAccountRegistered    TriggerKey = "account_registered"
	TriggerKeyAccountSecretRotated TriggerKey = "account_secret_rotated"
)

func (t TriggerKey) String() string {
	return string(t)
}

// Template is an email template rendered with html/template.
type Template struct {
	TriggerKey TriggerKey
	Subject    string
	Body       string
}

// Notice is a security notice addressed to an account owner.
type Notice struct {
	AccountID  int64
	Identifier string
	TriggerKey TriggerKey
	At         time.Time
}
