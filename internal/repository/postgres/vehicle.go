package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT id, owner_id, registration_number, seats FROM vehicles WHERE id = $1`

	var v domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.OwnerID, &v.RegistrationNumber, &v.Seats)
	if err != nil {
		return nil, lookupErr(err)
	}

	return &v, nil
}

// LocationRepository is a PostgreSQL implementation of repository.LocationRepository.
type LocationRepository struct {
	q Querier
}

// NewLocationRepository creates a new PostgreSQL location repository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{q: db}
}

// GetOrCreate returns the location with the given name, creating an
// unverified record when none exists. Names compare case-insensitively.
func (r *LocationRepository) GetOrCreate(ctx context.Context, name string) (*domain.Location, error) {
	name = strings.TrimSpace(name)

	query := `
		INSERT INTO locations (id, name)
		VALUES ($1, $2)
		ON CONFLICT (LOWER(name)) DO UPDATE SET name = locations.name
		RETURNING id, name, latitude, longitude, verified
	`

	var loc domain.Location
	var lat, lng sql.NullFloat64
	err := r.q.QueryRowContext(ctx, query, uuid.New().String(), name).Scan(
		&loc.ID, &loc.Name, &lat, &lng, &loc.Verified,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		loc.Latitude = &lat.Float64
	}
	if lng.Valid {
		loc.Longitude = &lng.Float64
	}
	return &loc, nil
}

// Ensure repositories implement their interfaces.
var (
	_ repository.VehicleRepository  = (*VehicleRepository)(nil)
	_ repository.LocationRepository = (*LocationRepository)(nil)
)
