// Package repository holds the MySQL-backed stores and the sentinel errors
// shared by every layer above them. Handlers translate the sentinels into
// HTTP statuses with errors.Is; services wrap them with context.
package repository

import "errors"

// ErrNotFound is returned when an id or number does not resolve to a row.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the principal lacks the role, ownership or
// department match an operation needs. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrValidation is returned for malformed or out-of-range input, including
// illegal status transitions. Handlers translate this into 400.
var ErrValidation = errors.New("validation failed")

// ErrConflict is returned for duplicate unique fields and for stale
// complaint versions. Handlers translate this into 409.
var ErrConflict = errors.New("conflict")
