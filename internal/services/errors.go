package services

import "errors"

var (
	// ErrValidation marks bad input. No state was changed.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown id or token. No state was changed.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks failed credentials or an unknown session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPersistence marks a failed durable write. The in-memory state
	// was left as it was before the request.
	ErrPersistence = errors.New("persistence error")
)
