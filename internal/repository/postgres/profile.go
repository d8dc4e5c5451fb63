package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ProfileRepository is a PostgreSQL implementation of repository.ProfileRepository.
type ProfileRepository struct {
	q Querier
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{q: db}
}

// NewProfileRepositoryWithTx creates a profile repository using a transaction.
func NewProfileRepositoryWithTx(tx *sql.Tx) *ProfileRepository {
	return &ProfileRepository{q: tx}
}

// IncrementDriverRides adds, per driver, the number of given rides they drove.
// It is one grouped upsert regardless of how many rides are passed.
func (r *ProfileRepository) IncrementDriverRides(ctx context.Context, rideIDs []string) (int64, error) {
	if len(rideIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO driver_profiles (user_id, total_rides_as_driver)
		SELECT driver_id, COUNT(*) FROM rides
		WHERE id = ANY($1::uuid[])
		GROUP BY driver_id
		ON CONFLICT (user_id) DO UPDATE
		SET total_rides_as_driver = driver_profiles.total_rides_as_driver + EXCLUDED.total_rides_as_driver
	`

	result, err := r.q.ExecContext(ctx, query, pq.Array(rideIDs))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// IncrementPassengerRides adds, per passenger, the number of non-cancelled
// bookings they hold on the given rides.
func (r *ProfileRepository) IncrementPassengerRides(ctx context.Context, rideIDs []string) (int64, error) {
	if len(rideIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO passenger_profiles (user_id, total_rides_as_passenger)
		SELECT passenger_id, COUNT(*) FROM bookings
		WHERE ride_id = ANY($1::uuid[]) AND status <> $2
		GROUP BY passenger_id
		ON CONFLICT (user_id) DO UPDATE
		SET total_rides_as_passenger = passenger_profiles.total_rides_as_passenger + EXCLUDED.total_rides_as_passenger
	`

	result, err := r.q.ExecContext(ctx, query, pq.Array(rideIDs), domain.BookingStatusCancelled)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetStats retrieves the counters of a user. Missing profiles read as zero.
func (r *ProfileRepository) GetStats(ctx context.Context, userID string) (*domain.RideStats, error) {
	query := `
		SELECT
			COALESCE((SELECT total_rides_as_driver FROM driver_profiles WHERE user_id = $1), 0),
			COALESCE((SELECT total_rides_as_passenger FROM passenger_profiles WHERE user_id = $1), 0)
	`

	stats := domain.RideStats{UserID: userID}
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&stats.RidesAsDriver, &stats.RidesAsPassenger); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Ensure ProfileRepository implements repository.ProfileRepository.
var _ repository.ProfileRepository = (*ProfileRepository)(nil)
