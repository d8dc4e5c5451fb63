package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error categories. Every error returned by the services either wraps one of
// these or is a repository/infrastructure error.
var (
	// ErrValidation is returned when a request is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientCapacity is returned when a ride cannot hold the requested seats.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrPermissionDenied is returned when the caller may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidStateTransition is returned when an entity is not in a state
	// that allows the operation.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrConsistencyViolation is returned when stored counters are out of bounds.
	ErrConsistencyViolation = errors.New("consistency violation")
)

var (
	// ErrInvalidRideID is returned when a ride ID is not a UUID.
	ErrInvalidRideID = fmt.Errorf("%w: invalid ride id", ErrValidation)

	// ErrInvalidBookingID is returned when a booking ID is not a UUID.
	ErrInvalidBookingID = fmt.Errorf("%w: invalid booking id", ErrValidation)

	// ErrInvalidPaymentID is returned when a payment ID is not a UUID.
	ErrInvalidPaymentID = fmt.Errorf("%w: invalid payment id", ErrValidation)

	// ErrInvalidVehicleID is returned when a vehicle ID is missing or not a UUID.
	ErrInvalidVehicleID = fmt.Errorf("%w: invalid vehicle id", ErrValidation)

	// ErrInvalidSeatCount is returned when fewer than one seat is requested.
	ErrInvalidSeatCount = fmt.Errorf("%w: seats must be at least 1", ErrValidation)

	// ErrInvalidStop is returned when a boarding or dropping point is not on the ride.
	ErrInvalidStop = fmt.Errorf("%w: stop is not served by this ride", ErrValidation)

	// ErrInvalidPaymentMethod is returned when payment method is invalid.
	ErrInvalidPaymentMethod = fmt.Errorf("%w: invalid payment method", ErrValidation)

	// ErrInvalidTimeRange is returned when a ride does not end after it starts
	// or starts in the past.
	ErrInvalidTimeRange = fmt.Errorf("%w: invalid ride time range", ErrValidation)

	// ErrInvalidFare is returned when the fare is outside the accepted range.
	ErrInvalidFare = fmt.Errorf("%w: fare out of range", ErrValidation)

	// ErrInvalidSeatsOffered is returned when offered seats do not fit the vehicle
	// or fall below the seats already booked.
	ErrInvalidSeatsOffered = fmt.Errorf("%w: invalid seats offered", ErrValidation)

	// ErrInvalidStops is returned when a ride has no boarding or dropping points.
	ErrInvalidStops = fmt.Errorf("%w: boarding and dropping points are required", ErrValidation)

	// ErrInvalidRoute is returned when source or destination is missing or equal.
	ErrInvalidRoute = fmt.Errorf("%w: invalid source or destination", ErrValidation)

	// ErrAlreadyBooked is returned when the passenger already holds a confirmed booking on the ride.
	ErrAlreadyBooked = fmt.Errorf("%w: ride already booked by passenger", ErrInvalidStateTransition)

	// ErrRideNotOpen is returned when a ride is not open for the operation.
	ErrRideNotOpen = fmt.Errorf("%w: ride is not open", ErrInvalidStateTransition)

	// ErrRideFrozen is returned when changing fields of a ride that is no longer open.
	ErrRideFrozen = fmt.Errorf("%w: vehicle, fare, seats and start time are frozen", ErrInvalidStateTransition)

	// ErrOverlappingRide is returned when the driver already has a ride in the time range.
	ErrOverlappingRide = fmt.Errorf("%w: driver has an overlapping ride", ErrInvalidStateTransition)

	// ErrBookingAlreadyCancelled is returned when cancelling a cancelled booking.
	ErrBookingAlreadyCancelled = fmt.Errorf("%w: booking already cancelled", ErrInvalidStateTransition)

	// ErrNotPassenger is returned when a non-passenger tries to book.
	ErrNotPassenger = fmt.Errorf("%w: only passengers can book rides", ErrPermissionDenied)

	// ErrNotDriver is returned when a non-driver tries to manage rides.
	ErrNotDriver = fmt.Errorf("%w: only drivers can manage rides", ErrPermissionDenied)

	// ErrNotOwner is returned when the caller does not own the entity.
	ErrNotOwner = fmt.Errorf("%w: caller does not own this resource", ErrPermissionDenied)
)

// checkID returns invalid unless id is a well-formed UUID.
func checkID(id string, invalid error) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid
	}
	return nil
}
