// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates input that fails shape or schema checks.
var ErrValidation = errors.New("validation failed")

// ErrPermissionDenied indicates the caller's role lacks the capability for the operation.
var ErrPermissionDenied = errors.New("permission denied")

// ErrLowConfidence indicates the router or extractor scored the request below
// the acceptance threshold. Never retried; the request is rejected outright.
var ErrLowConfidence = errors.New("confidence below threshold")

// ErrMissingParameters indicates required operation parameters are absent.
var ErrMissingParameters = errors.New("missing required parameters")

// ErrInvalidTransition indicates a status change not permitted by the transition graph.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrStore indicates an underlying store failure.
var ErrStore = errors.New("store error")

// ErrPartialFailure indicates the primary write committed but a batched
// sub-write did not. The operation is reported failed as a whole; callers
// must treat it as failed and may need to inspect store state directly.
var ErrPartialFailure = errors.New("partial failure: sub-operation failed after primary write")
