package entity

import "time"

type RegisteredEvent struct {
	AccountID  int64
	Identifier string
	At         time.Time
}

type ResetRequestedEvent struct {
	AccountID  int64
	Identifier string
	Delivered  bool
	At         time.Time
}

type SecretRotatedEvent struct {
	AccountID  int64
	Identifier string
	At         time.Time
}
