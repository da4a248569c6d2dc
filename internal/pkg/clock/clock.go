package clock

import "time"

// Clocker is the time source injected into usecases and token issuers.
type Clocker interface {
	Now() time.Time
}

// UTCClock reads the system time in UTC.
type UTCClock struct{}

// New returns the system clock.
func New() *UTCClock {
	return &UTCClock{}
}

// Now returns the current system time in UTC. Recovery token ages and
// session expiries are computed from it, so a process TZ never leaks into
// stored timestamps.
func (*UTCClock) Now() time.Time {
	return time.Now().UTC()
}
