package uid

import "github.com/google/uuid"

// UUID generates time-ordered RFC 9562 UUIDs, used for correlation and token IDs.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a UUIDv7 string, or a random UUIDv4 if the clock source fails.
func (u *UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}

	return uuid.NewString()
}
