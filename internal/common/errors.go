// Package common defines shared constants and sentinel errors used across
// the diary server and client. Callers should use errors.Is to match these
// values; the HTTP transport maps each one to exactly one status code.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Caller identity could not be established or is not on the allow-list.
	ErrorUnauthorized = errors.New("unauthorized")

	// Caller is authenticated but does not own the requested resource.
	ErrForbidden = errors.New("forbidden")

	// Malformed or missing input. Always client-caused.
	ErrValidation = errors.New("validation error")

	// A metadata store call failed.
	ErrUpstream = errors.New("upstream failure")

	// The object store reported per-key errors or the bulk delete failed outright.
	ErrAttachmentCleanup = errors.New("attachment cleanup failure")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
