package index

import "errors"

// ErrNotFound indicates a missing identifier or snapshot.
var ErrNotFound = errors.New("identifier not found")
