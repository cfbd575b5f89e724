package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Directory adapters and stores
// return these (optionally wrapped) so the processor can translate them into
// domain errors with the right propagation policy.
//
// These represent factual states about remote resources, not validation
// failures:
// - ErrNotFound: identity or record does not exist
// - ErrConflict: concurrent modification detected by the backend
// - ErrUnauthorized: credentials rejected by the directory service
// - ErrUnavailable: service temporarily unreachable
//
// For validation errors (bad input, missing configuration), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)
