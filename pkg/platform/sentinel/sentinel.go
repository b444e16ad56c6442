package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a uniqueness constraint would be violated
//
// For validation errors (bad input, missing fields), use pkg/validation.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
