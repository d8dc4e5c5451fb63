package redis

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RideCacheInterface defines the interface for the ride read cache.
type RideCacheInterface interface {
	GetRide(ctx context.Context, rideID string) (*domain.Ride, error)
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// LeaseStoreInterface defines the interface for named job leases.
type LeaseStoreInterface interface {
	AcquireLease(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, name string) error
}

// Ensure concrete types implement interfaces.
var (
	_ RideCacheInterface  = (*CacheStore)(nil)
	_ LeaseStoreInterface = (*LockStore)(nil)
)
