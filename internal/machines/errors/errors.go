package errors

import "errors"

var (
	ErrNotFound = errors.New("machine not found")

	ErrInvalidID = errors.New("invalid machine ID format")
)
