package apperrors

import (
	"errors"
)

// Sentinel errors shared across the service. Handlers map these onto HTTP
// statuses; the service layer keeps the specific kind so logs stay precise
// even where the external response deliberately merges not-found with
// access-denied.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
