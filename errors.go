package xraysearch

import "github.com/kailas-cloud/xraysearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound        = domain.ErrNotFound
	ErrTransport       = domain.ErrTransport
	ErrDecode          = domain.ErrDecode
	ErrTimeout         = domain.ErrTimeout
	ErrInvalidRecord   = domain.ErrInvalidRecord
	ErrInvalidLocation = domain.ErrInvalidLocation
	ErrSessionClosed   = domain.ErrSessionNotFound
)

// ValidationError names the draft field a submission was rejected for.
type ValidationError = domain.ValidationError
