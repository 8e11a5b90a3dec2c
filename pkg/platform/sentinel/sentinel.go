package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and ledger clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or on the ledger
// - ErrConflict: uniqueness or version check failed
//
// For validation errors (bad input, malformed keys), use pkg/domain-errors directly.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
