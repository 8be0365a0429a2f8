package batchworker

import "errors"

var (
	// ErrLeaseNotHeld indicates the calling instance is not (or is no longer)
	// the lease holder for a worker.
	ErrLeaseNotHeld = errors.New("lease not held")

	// ErrFileNotFound indicates no FileProgress record exists for a fileId.
	ErrFileNotFound = errors.New("file progress not found")

	// ErrTranslatorNotRegistered indicates a file references a translator
	// identifier that was never registered.
	ErrTranslatorNotRegistered = errors.New("translator not registered")

	// ErrRetriesExhausted indicates a transient operation failed maxRetries
	// times in a row and is now being surfaced to the caller.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
