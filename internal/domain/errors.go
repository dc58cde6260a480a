package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain lets adapters map it consistently to 404.
	ErrNotFound = errors.New("resource not found")
	// ErrCollectionDisabled signals that data collection is switched off.
	// No network call may be attempted while this holds.
	ErrCollectionDisabled = errors.New("data collection disabled")
	// ErrNoResolvableURL is returned when a page has no public permalink.
	ErrNoResolvableURL = errors.New("page has no resolvable url")
	// ErrMeasurementFailed covers every failure inside the measurement flow.
	// The distinct reasons (transport, status, body, parse) live in logs only.
	ErrMeasurementFailed = errors.New("measurement failed")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized and ErrForbidden are produced by the transport
	// middleware so auth failures flow through the same sentinel mapping
	// as every domain error.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
