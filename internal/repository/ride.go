package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID without locking it.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride and holds an exclusive row lock on it
	// until the surrounding transaction ends. Only valid inside WithinTx.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// ListOpen retrieves open rides matching the filter.
	ListOpen(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error)

	// ListByDriver retrieves all rides of a driver.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error)

	// HasOverlapping reports whether the driver has another open or full ride
	// intersecting [start, end). excludeID may be empty.
	HasOverlapping(ctx context.Context, driverID string, start, end time.Time, excludeID string) (bool, error)

	// Update persists the mutable ride fields (schedule, fare, stops, seats offered, status).
	Update(ctx context.Context, ride *domain.Ride) error

	// UpdateLedger persists seats booked and status only.
	UpdateLedger(ctx context.Context, ride *domain.Ride) error

	// CompleteExpired marks every open ride whose end time is before now as
	// completed and returns the affected rides.
	CompleteExpired(ctx context.Context, now time.Time) ([]domain.CompletedRide, error)
}
