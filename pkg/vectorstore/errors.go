package vectorstore

import "errors"

// Sentinel errors for store operations.
var (
	// ErrCorrupt is returned when the on-disk index or its metadata sidecar
	// cannot be read or parsed. Callers must treat this as operator-visible
	// data loss rather than silently starting from an empty store.
	ErrCorrupt = errors.New("vector store artifacts corrupt")

	// ErrDimensionMismatch is returned when a vector's dimension does not
	// match the dimension the store was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
