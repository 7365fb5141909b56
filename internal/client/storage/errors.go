package storage

import "errors"

// Common client storage errors
var (
	// ErrStorageUnavailable indicates that the durable store could not be opened
	// (corrupted file, bad magic, lock timeout). Distinct from "no data yet":
	// callers must run the recovery flow instead of showing an empty state.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrRowNotFound indicates that a mirror row was not found.
	// This is a normal outcome (entity not pulled yet), not a failure.
	ErrRowNotFound = errors.New("mirror row not found")

	// ErrMutationNotFound indicates that a queue record was not found
	ErrMutationNotFound = errors.New("mutation record not found")

	// ErrSessionNotFound indicates that no device session exists (not activated)
	ErrSessionNotFound = errors.New("device session not found")

	// ErrInvalidTransition indicates a forbidden mutation status transition
	ErrInvalidTransition = errors.New("invalid mutation status transition")
)
