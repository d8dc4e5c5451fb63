package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateConfirmedBooking is returned when storage rejects a second
	// confirmed booking for the same passenger and ride.
	ErrDuplicateConfirmedBooking = errors.New("duplicate confirmed booking")
)
