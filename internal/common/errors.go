// Package common defines sentinel errors and protocol constants shared by
// the bot packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrNoModelToken is returned by every catalog or storage call made
	// without the second-tier platform token. It aborts the run.
	ErrNoModelToken = errors.New("model token and model user id are required")

	// ErrCredentialsUnavailable means the platform returned no storage key.
	ErrCredentialsUnavailable = errors.New("storage credentials unavailable")

	// ErrNotFound is returned by repositories for unknown items.
	ErrNotFound = errors.New("not found")

	// ErrNoFiles means an item has no downloadable container.
	ErrNoFiles = errors.New("no container files")
)
