package store

import "errors"

// ErrNotFound is returned when a row does not exist or is not visible to the
// calling tenant.
var ErrNotFound = errors.New("not found")
