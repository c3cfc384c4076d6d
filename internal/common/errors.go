// Package common defines shared sentinel errors and the error taxonomy used
// across the Transdovic backoffice. Callers should use errors.Is / errors.As
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service lifecycle errors.
	ErrNotInitialized = errors.New("not initialized")

	// Workspace errors (a modal is already open for the entity type).
	ErrModalOpen = errors.New("modal already open")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError reports a locally rejected input. It is raised before any
// network call and is always recoverable by correcting the field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// RemoteError is the uniform shape for any remote-store or object-storage
// failure. Message is surfaced verbatim to the user as a transient
// notification; the wrapped cause stays available for errors.Is matching.
type RemoteError struct {
	Message string
	err     error
}

// NewRemoteError wraps err as a RemoteError carrying msg.
func NewRemoteError(msg string, err error) *RemoteError {
	return &RemoteError{Message: msg, err: err}
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.err }

// UploadError is a remote failure specific to attachment upload. It aborts
// only the line-add attempt that triggered it.
type UploadError struct {
	Remote *RemoteError
}

func (e *UploadError) Error() string { return "upload: " + e.Remote.Message }

func (e *UploadError) Unwrap() error { return e.Remote }
