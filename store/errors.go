package store

import "errors"

var (
	// ErrLeaseNotFound indicates no lease record exists for the worker.
	ErrLeaseNotFound = errors.New("lease not found")

	// ErrFileNotFound indicates no FileProgress record exists for the fileId.
	ErrFileNotFound = errors.New("file progress not found")
)
