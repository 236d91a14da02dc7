// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalid        = errors.New("invalid input")
	ErrStoreExhausted = errors.New("no storage tier could be opened")
	ErrSchemaMismatch = errors.New("schema version mismatch")
	ErrNoSnapshot     = errors.New("no snapshot available")
)
