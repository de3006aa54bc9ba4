package storage

import "errors"

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrExists indicates a blob already exists at the key.
	ErrExists = errors.New("blob already exists")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates an absolute key or one with an empty, "." or ".." segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrDisabled is returned by New when no connection string is configured.
	ErrDisabled = errors.New("storage disabled")
)
