package repository

import (
	"context"

	"carpool/internal/domain"
)

// ProfileRepository maintains the aggregate ride counters of drivers and passengers.
type ProfileRepository interface {
	// IncrementDriverRides adds, per driver, the number of given rides they drove.
	IncrementDriverRides(ctx context.Context, rideIDs []string) (int64, error)

	// IncrementPassengerRides adds, per passenger, the number of non-cancelled
	// bookings they hold on the given rides.
	IncrementPassengerRides(ctx context.Context, rideIDs []string) (int64, error)

	// GetStats retrieves the counters of a user. Missing profiles read as zero.
	GetStats(ctx context.Context, userID string) (*domain.RideStats, error)
}

// VehicleRepository reads the vehicle catalog.
type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}

// LocationRepository stores named places.
type LocationRepository interface {
	// GetOrCreate returns the location with the given name, creating an
	// unverified record when none exists.
	GetOrCreate(ctx context.Context, name string) (*domain.Location, error)
}
