package sentinel

import "errors"

// Sentinel errors for store-level facts. Store implementations return these
// (optionally wrapped) so the contact service can translate them into coded
// domain errors without knowing which backend produced them.
//
// These represent factual states about rows, not validation failures:
// - ErrNotFound: row does not exist in the store
// - ErrConflict: a uniqueness or linkage constraint rejected the write
// - ErrUnavailable: the store cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
