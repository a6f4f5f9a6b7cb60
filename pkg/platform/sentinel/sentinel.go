package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: the row does not exist
//   - ErrAlreadyUsed: a uniqueness rule rejected the write (open case per
//     national id, username, national id, settings key)
//   - ErrConflict: optimistic concurrency check failed (stale version)
//   - ErrInvalidState: the row is in the wrong state for the operation
//   - ErrUnavailable: a backing service (database, redis, gateway) is down
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
