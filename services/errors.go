package services

import "errors"

// Error taxonomy for the notification and presence services. Handlers map
// these onto HTTP statuses; everything else surfaces as a generic failure.
var (
	// ErrNotFound means the referenced user or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied means an ownership check failed. It deliberately
	// carries no detail about whether the target exists.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCacheUnavailable means the counter cache could not be reached.
	// Callers log it and fall back to the durable store.
	ErrCacheUnavailable = errors.New("counter cache unavailable")

	// ErrInvalidKind means the notification kind is outside the closed set.
	ErrInvalidKind = errors.New("invalid notification kind")
)
