package library

import "errors"

var (
	// ErrNotFound indicates a scan root or file target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnreadable indicates an entry could not be listed, opened or read.
	// The walker absorbs it per entry; it only surfaces for a scan root that
	// exists but cannot be inspected.
	ErrUnreadable = errors.New("unreadable")

	// ErrCancelled indicates a scan stopped before completing.
	ErrCancelled = errors.New("scan cancelled")
)
