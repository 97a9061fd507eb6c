package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrUnauthorized         = errors.New("unauthorized access")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrConflict             = errors.New("resource already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTransportUnavailable = errors.New("event transport unavailable")
	ErrStaleResponse        = errors.New("response arrived for a stale context")
)
