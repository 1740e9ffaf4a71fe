package domain

import "errors"

// Sentinel errors returned by the store and journey services. Handlers map
// these to HTTP status codes; nothing below this layer speaks HTTP.
var (
	// ErrNotFound covers both a missing journey and an ownership mismatch.
	// The two are deliberately indistinguishable so callers cannot probe
	// for the existence of other staff members' journeys.
	ErrNotFound = errors.New("journey not found")

	// ErrInvalidTransition is a status change outside the permitted table,
	// or any write against a completed/cancelled journey.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is missing or malformed input at journey creation.
	ErrValidation = errors.New("validation error")

	// ErrInvalidArgument is an out-of-range seat number or a non-positive
	// seat count.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrAlreadyInitialized  = errors.New("seat layout already initialized")
	ErrNotInitialized      = errors.New("seat layout not initialized")
	ErrSeatAlreadyOccupied = errors.New("seat is already occupied")
	ErrSeatNotOccupied     = errors.New("seat is not occupied")

	// ErrPersistence wraps store failures (unreachable database, failed
	// write). The only class callers may treat as transient.
	ErrPersistence = errors.New("persistence error")
)
