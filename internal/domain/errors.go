package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist. Handlers map this to HTTP 404.
//
// DepictRepo.Find does not use it: a missing depiction is a normal empty result.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule (e.g. an empty
// depiction name or a negative limit).
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write would give two stored depictions the
// same name. Handlers map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrStorage wraps every failure reported by the underlying storage engine.
// The store never retries; callers decide whether to retry or give up.
var ErrStorage = errors.New("storage error")

// ErrUnsupportedMigration is returned when asked to move the schema
// backwards or to a version the binary does not know about.
var ErrUnsupportedMigration = errors.New("unsupported migration")
