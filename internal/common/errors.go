// Package common defines shared constants and sentinel errors used across
// the transport, service and repository layers of gophchat. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Malformed or missing input: empty content, self-addressed message, bad paging.
	ErrValidation = errors.New("validation error")

	// Missing, malformed or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// Authenticated, but not the owner of the resource.
	ErrForbidden = errors.New("forbidden")

	// Opaque failure of an underlying collaborator (storage, hashing).
	ErrInternal = errors.New("internal error")

	ErrRateLimited = errors.New("rate limit exceeded")
)
