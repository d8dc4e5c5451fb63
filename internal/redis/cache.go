package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"carpool/internal/domain"
)

// RideCacheTTL bounds how stale a cached ride read can be if an
// invalidation is lost.
const RideCacheTTL = 10 * time.Second

const rideCachePrefix = "cache:ride:"

// CacheStore handles ride read caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// CachedRide is the cached representation of a ride.
type CachedRide struct {
	ID             string          `json:"id"`
	DriverID       string          `json:"driver_id"`
	VehicleID      string          `json:"vehicle_id"`
	SourceID       string          `json:"source_id"`
	Source         string          `json:"source"`
	DestinationID  string          `json:"destination_id"`
	Destination    string          `json:"destination"`
	BoardingPoints []string        `json:"boarding_points"`
	DroppingPoints []string        `json:"dropping_points"`
	Fare           decimal.Decimal `json:"fare"`
	SeatsOffered   int             `json:"seats_offered"`
	SeatsBooked    int             `json:"seats_booked"`
	Status         string          `json:"status"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func newCachedRide(ride *domain.Ride) *CachedRide {
	return &CachedRide{
		ID:             ride.ID,
		DriverID:       ride.DriverID,
		VehicleID:      ride.VehicleID,
		SourceID:       ride.SourceID,
		Source:         ride.Source,
		DestinationID:  ride.DestinationID,
		Destination:    ride.Destination,
		BoardingPoints: ride.BoardingPoints,
		DroppingPoints: ride.DroppingPoints,
		Fare:           ride.Fare,
		SeatsOffered:   ride.SeatsOffered,
		SeatsBooked:    ride.SeatsBooked,
		Status:         string(ride.Status),
		StartTime:      ride.StartTime,
		EndTime:        ride.EndTime,
		CreatedAt:      ride.CreatedAt,
		UpdatedAt:      ride.UpdatedAt,
	}
}

// Ride converts the cached entry back into a domain ride.
func (c *CachedRide) Ride() *domain.Ride {
	return &domain.Ride{
		ID:             c.ID,
		DriverID:       c.DriverID,
		VehicleID:      c.VehicleID,
		SourceID:       c.SourceID,
		Source:         c.Source,
		DestinationID:  c.DestinationID,
		Destination:    c.Destination,
		BoardingPoints: c.BoardingPoints,
		DroppingPoints: c.DroppingPoints,
		Fare:           c.Fare,
		SeatsOffered:   c.SeatsOffered,
		SeatsBooked:    c.SeatsBooked,
		Status:         domain.RideStatus(c.Status),
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// GetRide retrieves a ride from cache. A miss returns nil, nil.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	key := rideCachePrefix + rideID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached CachedRide
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.Ride(), nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	key := rideCachePrefix + ride.ID
	data, err := json.Marshal(newCachedRide(ride))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, RideCacheTTL).Err()
}

// InvalidateRide removes a ride from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	key := rideCachePrefix + rideID
	return s.client.Del(ctx, key).Err()
}
