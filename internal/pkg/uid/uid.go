// Package uid generates identifiers for persisted records and request
// correlation.
package uid

// NumberID produces sortable numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID produces opaque string identifiers.
type StringID interface {
	Generate() string
}
