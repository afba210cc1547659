package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable is returned when the underlying store fails for I/O or connection reasons
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchema is returned when the schema cannot be created; startup must abort
	ErrSchema = fmt.Errorf("schema error: %w", ErrStorageUnavailable)

	// ErrConstraintViolation is returned when a write breaks a uniqueness or reference constraint
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrUnknownEventType is returned for events whose type has no storage table
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidEvent is returned when an event fails boundary validation
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidMetadata is returned when a metadata label fails boundary validation
	ErrInvalidMetadata = errors.New("invalid metadata")
)
