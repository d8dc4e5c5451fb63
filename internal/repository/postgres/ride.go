package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

const rideColumns = `
	r.id, r.driver_id, r.vehicle_id, r.source_id, s.name, r.destination_id, d.name,
	r.boarding_points, r.dropping_points, r.fare, r.seats_offered, r.seats_booked,
	r.status, r.start_time, r.end_time, r.created_at, r.updated_at`

const rideFrom = `
	FROM rides r
	JOIN locations s ON s.id = r.source_id
	JOIN locations d ON d.id = r.destination_id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, driver_id, vehicle_id, source_id, destination_id, boarding_points, dropping_points, fare, seats_offered, seats_booked, status, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.DriverID,
		ride.VehicleID,
		ride.SourceID,
		ride.DestinationID,
		pq.Array(ride.BoardingPoints),
		pq.Array(ride.DroppingPoints),
		ride.Fare,
		ride.SeatsOffered,
		ride.SeatsBooked,
		ride.Status,
		ride.StartTime,
		ride.EndTime,
		ride.CreatedAt,
		ride.UpdatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + rideFrom + ` WHERE r.id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a ride and locks its row until the transaction ends.
// Concurrent callers for the same ride block here, which serializes every
// capacity mutation on that ride.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	if _, ok := r.q.(*sql.Tx); !ok {
		return nil, errors.New("GetByIDForUpdate requires a transaction")
	}
	query := `SELECT ` + rideColumns + rideFrom + ` WHERE r.id = $1 FOR UPDATE OF r`
	return r.getOne(ctx, query, id)
}

func (r *RideRepository) getOne(ctx context.Context, query, id string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, lookupErr(err)
	}
	return ride, nil
}

// ListOpen retrieves open rides matching the filter, soonest first.
func (r *RideRepository) ListOpen(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error) {
	conds := []string{"r.status = $1"}
	args := []any{domain.RideStatusOpen}

	if filter.Source != "" {
		args = append(args, filter.Source)
		conds = append(conds, fmt.Sprintf("LOWER(s.name) = LOWER($%d)", len(args)))
	}
	if filter.Destination != "" {
		args = append(args, filter.Destination)
		conds = append(conds, fmt.Sprintf("LOWER(d.name) = LOWER($%d)", len(args)))
	}
	if !filter.Date.IsZero() {
		day := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		args = append(args, day, day.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("r.start_time >= $%d AND r.start_time < $%d", len(args)-1, len(args)))
	}

	query := `SELECT ` + rideColumns + rideFrom +
		` WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY r.start_time ASC LIMIT 100`

	return r.list(ctx, query, args...)
}

// ListByDriver retrieves all rides of a driver, newest first.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + rideFrom + ` WHERE r.driver_id = $1 ORDER BY r.start_time DESC`
	return r.list(ctx, query, driverID)
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// HasOverlapping reports whether the driver has another scheduled ride
// intersecting [start, end).
func (r *RideRepository) HasOverlapping(ctx context.Context, driverID string, start, end time.Time, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rides
			WHERE driver_id = $1
			  AND start_time < $2
			  AND end_time > $3
			  AND status IN ($4, $5)
			  AND ($6 = '' OR id::text <> $6)
		)
	`

	var exists bool
	err := r.q.QueryRowContext(ctx, query,
		driverID, end, start, domain.RideStatusOpen, domain.RideStatusFull, excludeID,
	).Scan(&exists)
	return exists, err
}

// Update persists the mutable ride fields.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET vehicle_id = $1, boarding_points = $2, dropping_points = $3, fare = $4, seats_offered = $5, seats_booked = $6, status = $7, start_time = $8, end_time = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		ride.VehicleID,
		pq.Array(ride.BoardingPoints),
		pq.Array(ride.DroppingPoints),
		ride.Fare,
		ride.SeatsOffered,
		ride.SeatsBooked,
		ride.Status,
		ride.StartTime,
		ride.EndTime,
		ride.UpdatedAt,
		ride.ID,
	)
	return checkAffected(result, err)
}

// UpdateLedger persists seats booked and status only.
func (r *RideRepository) UpdateLedger(ctx context.Context, ride *domain.Ride) error {
	query := `UPDATE rides SET seats_booked = $1, status = $2, updated_at = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query, ride.SeatsBooked, ride.Status, ride.UpdatedAt, ride.ID)
	return checkAffected(result, err)
}

// CompleteExpired transitions expired open rides to completed in one statement.
func (r *RideRepository) CompleteExpired(ctx context.Context, now time.Time) ([]domain.CompletedRide, error) {
	query := `
		UPDATE rides
		SET status = $1, updated_at = $2
		WHERE status = $3 AND end_time < $2
		RETURNING id, driver_id
	`

	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusCompleted, now, domain.RideStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completed []domain.CompletedRide
	for rows.Next() {
		var c domain.CompletedRide
		if err := rows.Scan(&c.ID, &c.DriverID); err != nil {
			return nil, err
		}
		completed = append(completed, c)
	}
	return completed, rows.Err()
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	err := row.Scan(
		&ride.ID,
		&ride.DriverID,
		&ride.VehicleID,
		&ride.SourceID,
		&ride.Source,
		&ride.DestinationID,
		&ride.Destination,
		pq.Array(&ride.BoardingPoints),
		pq.Array(&ride.DroppingPoints),
		&ride.Fare,
		&ride.SeatsOffered,
		&ride.SeatsBooked,
		&ride.Status,
		&ride.StartTime,
		&ride.EndTime,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// checkAffected converts a zero-row update into repository.ErrNotFound.
func checkAffected(result sql.Result, err error) error {
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
