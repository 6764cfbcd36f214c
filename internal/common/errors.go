// Package common defines shared constants and sentinel errors used across
// the connection, storage and index layers of flogger. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Storage-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrUnavailable     = errors.New("storage unavailable")

	// Connection errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrAuthorization  = errors.New("authorization failed")

	// Content errors.
	ErrParse    = errors.New("parse error")
	ErrReadOnly = errors.New("document is read-only")
)

// ConflictError carries the provider's explanation of a revision mismatch.
// It matches ErrVersionConflict.
type ConflictError struct {
	Path     string
	Revision string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("version conflict on %s (revision %q)", e.Path, e.Revision)
	}
	return fmt.Sprintf("version conflict on %s: %s", e.Path, e.Message)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}
