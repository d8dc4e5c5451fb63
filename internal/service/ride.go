package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

var (
	minFare = decimal.NewFromInt(50)
	maxFare = decimal.NewFromInt(10000)
)

// RideService handles driver-side ride operations and ride reads.
type RideService struct {
	txManager           repository.TxManager
	rideRepo            repository.RideRepository
	bookingRepo         repository.BookingRepository
	vehicleRepo         repository.VehicleRepository
	locationRepo        repository.LocationRepository
	ledger              *Ledger
	cache               redis.RideCacheInterface
	notificationService *NotificationService
	logger              logrus.FieldLogger
}

// NewRideService creates a new RideService. cache and notificationService may be nil.
func NewRideService(
	txManager repository.TxManager,
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	locationRepo repository.LocationRepository,
	ledger *Ledger,
	cache redis.RideCacheInterface,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *RideService {
	return &RideService{
		txManager:           txManager,
		rideRepo:            rideRepo,
		bookingRepo:         bookingRepo,
		vehicleRepo:         vehicleRepo,
		locationRepo:        locationRepo,
		ledger:              ledger,
		cache:               cache,
		notificationService: notificationService,
		logger:              logger,
	}
}

// CreateRideRequest contains the parameters for publishing a ride.
type CreateRideRequest struct {
	VehicleID      string
	Source         string
	Destination    string
	BoardingPoints []string
	DroppingPoints []string
	Fare           decimal.Decimal
	SeatsOffered   int
	StartTime      time.Time
	EndTime        time.Time
}

// CreateRide publishes a new open ride for the calling driver.
func (s *RideService) CreateRide(ctx context.Context, caller domain.Identity, req CreateRideRequest) (*domain.Ride, error) {
	if caller.Role != domain.RoleDriver {
		return nil, ErrNotDriver
	}

	boarding := cleanStops(req.BoardingPoints)
	dropping := cleanStops(req.DroppingPoints)
	if err := validateRoute(req.Source, req.Destination, boarding, dropping); err != nil {
		return nil, err
	}
	if err := validateFare(req.Fare); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := validateSchedule(req.StartTime, req.EndTime, now); err != nil {
		return nil, err
	}

	vehicle, err := s.ownedVehicle(ctx, caller, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if err := validateSeatsOffered(req.SeatsOffered, 0, vehicle); err != nil {
		return nil, err
	}

	overlapping, err := s.rideRepo.HasOverlapping(ctx, caller.UserID, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, fmt.Errorf("check overlapping rides: %w", err)
	}
	if overlapping {
		return nil, ErrOverlappingRide
	}

	source, err := s.locationRepo.GetOrCreate(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	destination, err := s.locationRepo.GetOrCreate(ctx, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	ride := &domain.Ride{
		ID:             uuid.New().String(),
		DriverID:       caller.UserID,
		VehicleID:      vehicle.ID,
		SourceID:       source.ID,
		Source:         source.Name,
		DestinationID:  destination.ID,
		Destination:    destination.Name,
		BoardingPoints: boarding,
		DroppingPoints: dropping,
		Fare:           req.Fare,
		SeatsOffered:   req.SeatsOffered,
		SeatsBooked:    0,
		Status:         domain.RideStatusOpen,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"ride_id":       ride.ID,
		"driver_id":     ride.DriverID,
		"seats_offered": ride.SeatsOffered,
	}).Info("ride created")

	if s.notificationService != nil {
		s.notificationService.NotifyRideCreated(ride)
	}

	return ride, nil
}

// UpdateRideRequest contains the ride fields to change. Nil fields are left as is.
type UpdateRideRequest struct {
	VehicleID      *string
	BoardingPoints []string
	DroppingPoints []string
	Fare           *decimal.Decimal
	SeatsOffered   *int
	StartTime      *time.Time
	EndTime        *time.Time
}

// frozenChange reports whether the request changes a field that is frozen
// once a ride leaves open.
func (r UpdateRideRequest) frozenChange(ride *domain.Ride) bool {
	return (r.VehicleID != nil && *r.VehicleID != ride.VehicleID) ||
		(r.Fare != nil && !r.Fare.Equal(ride.Fare)) ||
		(r.SeatsOffered != nil && *r.SeatsOffered != ride.SeatsOffered) ||
		(r.StartTime != nil && !r.StartTime.Equal(ride.StartTime))
}

// UpdateRide changes a ride owned by the caller under the ride lock.
func (s *RideService) UpdateRide(ctx context.Context, caller domain.Identity, rideID string, req UpdateRideRequest) (*domain.Ride, error) {
	if caller.Role != domain.RoleDriver {
		return nil, ErrNotDriver
	}
	if err := checkID(rideID, ErrInvalidRideID); err != nil {
		return nil, err
	}

	var updated *domain.Ride
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != caller.UserID {
			return ErrNotOwner
		}

		switch ride.Status {
		case domain.RideStatusCompleted, domain.RideStatusCancelled:
			return ErrRideNotOpen
		case domain.RideStatusFull:
			if req.frozenChange(ride) {
				return ErrRideFrozen
			}
		}

		now := time.Now()

		if req.BoardingPoints != nil {
			ride.BoardingPoints = cleanStops(req.BoardingPoints)
		}
		if req.DroppingPoints != nil {
			ride.DroppingPoints = cleanStops(req.DroppingPoints)
		}
		if len(ride.BoardingPoints) == 0 || len(ride.DroppingPoints) == 0 {
			return ErrInvalidStops
		}

		if req.Fare != nil {
			if err := validateFare(*req.Fare); err != nil {
				return err
			}
			ride.Fare = *req.Fare
		}

		if req.VehicleID != nil || req.SeatsOffered != nil {
			vehicleID := ride.VehicleID
			if req.VehicleID != nil {
				vehicleID = *req.VehicleID
			}
			vehicle, err := s.ownedVehicle(ctx, caller, vehicleID)
			if err != nil {
				return err
			}
			seats := ride.SeatsOffered
			if req.SeatsOffered != nil {
				seats = *req.SeatsOffered
			}
			if err := validateSeatsOffered(seats, ride.SeatsBooked, vehicle); err != nil {
				return err
			}
			ride.VehicleID = vehicle.ID
			if err := s.ledger.Resize(ride, seats); err != nil {
				return err
			}
		}

		timesChanged := false
		if req.StartTime != nil && !req.StartTime.Equal(ride.StartTime) {
			if !req.StartTime.After(now) {
				return ErrInvalidTimeRange
			}
			ride.StartTime = *req.StartTime
			timesChanged = true
		}
		if req.EndTime != nil && !req.EndTime.Equal(ride.EndTime) {
			ride.EndTime = *req.EndTime
			timesChanged = true
		}
		if !ride.EndTime.After(ride.StartTime) {
			return ErrInvalidTimeRange
		}
		if timesChanged {
			overlapping, err := repos.Rides.HasOverlapping(ctx, caller.UserID, ride.StartTime, ride.EndTime, ride.ID)
			if err != nil {
				return fmt.Errorf("check overlapping rides: %w", err)
			}
			if overlapping {
				return ErrOverlappingRide
			}
		}

		ride.UpdatedAt = now
		if err := repos.Rides.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		updated = ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRide(ctx, updated.ID)

	s.logger.WithFields(logrus.Fields{
		"ride_id":   updated.ID,
		"driver_id": updated.DriverID,
		"status":    updated.Status,
	}).Info("ride updated")

	return updated, nil
}

// CancelRide cancels an open ride owned by the caller and notifies its
// confirmed passengers.
func (s *RideService) CancelRide(ctx context.Context, caller domain.Identity, rideID string) (*domain.Ride, error) {
	if caller.Role != domain.RoleDriver {
		return nil, ErrNotDriver
	}
	if err := checkID(rideID, ErrInvalidRideID); err != nil {
		return nil, err
	}

	var cancelled *domain.Ride
	var passengerIDs []string
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != caller.UserID {
			return ErrNotOwner
		}
		if ride.Status != domain.RideStatusOpen {
			return ErrRideNotOpen
		}

		ride.Status = domain.RideStatusCancelled
		ride.UpdatedAt = time.Now()
		if err := repos.Rides.UpdateLedger(ctx, ride); err != nil {
			return fmt.Errorf("cancel ride: %w", err)
		}

		bookings, err := repos.Bookings.ListByRide(ctx, ride.ID)
		if err != nil {
			return fmt.Errorf("list ride bookings: %w", err)
		}
		for _, b := range bookings {
			if b.Status == domain.BookingStatusConfirmed {
				passengerIDs = append(passengerIDs, b.PassengerID)
			}
		}

		cancelled = ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRide(ctx, cancelled.ID)

	s.logger.WithFields(logrus.Fields{
		"ride_id":    cancelled.ID,
		"driver_id":  cancelled.DriverID,
		"passengers": len(passengerIDs),
	}).Info("ride cancelled")

	if s.notificationService != nil {
		s.notificationService.NotifyRideCancelled(cancelled, passengerIDs)
	}

	return cancelled, nil
}

// GetRide retrieves a ride, serving it from the read cache when possible.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if err := checkID(rideID, ErrInvalidRideID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, rideID)
		if err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("read ride cache")
		} else if cached != nil {
			return cached, nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRide(ctx, ride); err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("write ride cache")
		}
	}

	return ride, nil
}

// ListOpenRides retrieves open rides matching the filter.
func (s *RideService) ListOpenRides(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error) {
	filter.Source = strings.TrimSpace(filter.Source)
	filter.Destination = strings.TrimSpace(filter.Destination)
	return s.rideRepo.ListOpen(ctx, filter)
}

// ListDriverRides retrieves every ride of the calling driver.
func (s *RideService) ListDriverRides(ctx context.Context, caller domain.Identity) ([]*domain.Ride, error) {
	if caller.Role != domain.RoleDriver {
		return nil, ErrNotDriver
	}
	return s.rideRepo.ListByDriver(ctx, caller.UserID)
}

// RideBookings retrieves the bookings on a ride owned by the caller.
func (s *RideService) RideBookings(ctx context.Context, caller domain.Identity, rideID string) ([]*domain.Booking, error) {
	if err := checkID(rideID, ErrInvalidRideID); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin && (caller.Role != domain.RoleDriver || ride.DriverID != caller.UserID) {
		return nil, ErrNotOwner
	}

	return s.bookingRepo.ListByRide(ctx, rideID)
}

func (s *RideService) ownedVehicle(ctx context.Context, caller domain.Identity, vehicleID string) (*domain.Vehicle, error) {
	if err := checkID(vehicleID, ErrInvalidVehicleID); err != nil {
		return nil, err
	}
	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.OwnerID != caller.UserID {
		return nil, ErrNotOwner
	}
	return vehicle, nil
}

func (s *RideService) invalidateRide(ctx context.Context, rideID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRide(ctx, rideID); err != nil {
		s.logger.WithError(err).WithField("ride_id", rideID).Warn("invalidate ride cache")
	}
}

func validateRoute(source, destination string, boarding, dropping []string) error {
	source = strings.TrimSpace(source)
	destination = strings.TrimSpace(destination)
	if source == "" || destination == "" || strings.EqualFold(source, destination) {
		return ErrInvalidRoute
	}
	if len(boarding) == 0 || len(dropping) == 0 {
		return ErrInvalidStops
	}
	return nil
}

func validateFare(fare decimal.Decimal) error {
	if fare.LessThan(minFare) || fare.GreaterThan(maxFare) {
		return ErrInvalidFare
	}
	return nil
}

func validateSchedule(start, end, now time.Time) error {
	if !start.After(now) || !end.After(start) {
		return ErrInvalidTimeRange
	}
	return nil
}

// validateSeatsOffered keeps one vehicle seat for the driver.
func validateSeatsOffered(seats, booked int, vehicle *domain.Vehicle) error {
	if seats < 1 || seats > vehicle.Seats-1 || seats < booked {
		return ErrInvalidSeatsOffered
	}
	return nil
}

func cleanStops(stops []string) []string {
	cleaned := make([]string, 0, len(stops))
	for _, stop := range stops {
		if stop = strings.TrimSpace(stop); stop != "" {
			cleaned = append(cleaned, stop)
		}
	}
	return cleaned
}
