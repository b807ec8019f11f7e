package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a record with the same unique key already exists.
	ErrDuplicate = errors.New("repository: duplicate key")
)
