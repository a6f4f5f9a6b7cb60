package storage

import "errors"

// ErrTooLarge is returned when an upload exceeds its limit. The partial file
// is removed before it is returned.
var ErrTooLarge = errors.New("file too large")
