package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is returned by the store when an insert collides with the
// (city, country, observed_date, captured_at) uniqueness constraint. The
// loader treats it as a benign "already exists", not a failure.
var ErrDuplicateKey = errors.New("observation already exists")

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("observation not found")

// NetworkError indicates the upstream could not be reached at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError indicates the upstream did not answer within the request
// timeout.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "request timed out: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error { return e.Err }

// UpstreamError indicates the upstream answered with a non-200 status.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d", e.Status)
}

// ParseError indicates the upstream body was not the expected JSON shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse error: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }
