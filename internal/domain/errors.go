package domain

import "errors"

// Error classes shared by the store, the services and the HTTP layer.
// Callers wrap them with context and classify with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrAuthentication    = errors.New("authentication required")
	ErrAuthorization     = errors.New("not authorized")
	ErrDataIntegrity     = errors.New("data integrity violation")
	ErrUpstream          = errors.New("upstream unavailable")
)
