package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// confirmedBookingIndex enforces one confirmed booking per passenger and ride.
const confirmedBookingIndex = "bookings_one_confirmed_per_passenger"

const bookingColumns = `b.id, b.ride_id, b.passenger_id, b.boarding_point, b.dropping_point, b.seats, b.status, b.created_at, b.updated_at`

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, ride_id, passenger_id, boarding_point, dropping_point, seats, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.RideID,
		booking.PassengerID,
		booking.BoardingPoint,
		booking.DroppingPoint,
		booking.Seats,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if isUniqueViolation(err, confirmedBookingIndex) {
		return repository.ErrDuplicateConfirmedBooking
	}

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, lookupErr(err)
	}

	return booking, nil
}

// UpdateStatus updates the status of a booking.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if isUniqueViolation(err, confirmedBookingIndex) {
		return repository.ErrDuplicateConfirmedBooking
	}
	return checkAffected(result, err)
}

// HasConfirmed reports whether the passenger holds a confirmed booking on the ride.
func (r *BookingRepository) HasConfirmed(ctx context.Context, passengerID, rideID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE passenger_id = $1 AND ride_id = $2 AND status = $3
		)
	`

	var exists bool
	err := r.q.QueryRowContext(ctx, query, passengerID, rideID, domain.BookingStatusConfirmed).Scan(&exists)
	return exists, err
}

// ListByPassenger retrieves a passenger's bookings matching the filter, newest first.
func (r *BookingRepository) ListByPassenger(ctx context.Context, passengerID string, filter domain.BookingFilter) ([]*domain.Booking, error) {
	conds := []string{"b.passenger_id = $1"}
	args := []any{passengerID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if filter.BoardingPoint != "" {
		args = append(args, filter.BoardingPoint)
		conds = append(conds, fmt.Sprintf("LOWER(b.boarding_point) = LOWER($%d)", len(args)))
	}
	if filter.DroppingPoint != "" {
		args = append(args, filter.DroppingPoint)
		conds = append(conds, fmt.Sprintf("LOWER(b.dropping_point) = LOWER($%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("r.start_time >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("r.start_time <= $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN rides r ON r.id = b.ride_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY b.created_at DESC`

	return r.list(ctx, query, args...)
}

// ListByRide retrieves all bookings on a ride.
func (r *BookingRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.ride_id = $1 ORDER BY b.created_at ASC`
	return r.list(ctx, query, rideID)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	err := row.Scan(
		&booking.ID,
		&booking.RideID,
		&booking.PassengerID,
		&booking.BoardingPoint,
		&booking.DroppingPoint,
		&booking.Seats,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
