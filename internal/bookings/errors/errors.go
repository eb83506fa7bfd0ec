package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means a compare-and-set lost to a concurrent writer.
	ErrStatusChanged = errors.New("booking changed concurrently")

	ErrTourNotFound = errors.New("tour not found")

	ErrTourUnavailable = errors.New("tour catalog unavailable")
)
