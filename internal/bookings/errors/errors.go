package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrMachineNotFound = errors.New("machine not found")

	ErrLockHeld = errors.New("slot lock already held")
)
