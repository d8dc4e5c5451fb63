package repository

import (
	"context"

	"carpool/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// UpdateStatus updates the status of a booking.
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error

	// HasConfirmed reports whether the passenger holds a confirmed booking on the ride.
	HasConfirmed(ctx context.Context, passengerID, rideID string) (bool, error)

	// ListByPassenger retrieves a passenger's bookings matching the filter.
	ListByPassenger(ctx context.Context, passengerID string, filter domain.BookingFilter) ([]*domain.Booking, error)

	// ListByRide retrieves all bookings on a ride.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error)
}
