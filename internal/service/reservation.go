package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// ReservationService coordinates seat reservations and cancellations.
// Every capacity change happens inside one transaction that holds the ride's
// row lock, together with the booking and payment writes it belongs to.
type ReservationService struct {
	txManager           repository.TxManager
	rideRepo            repository.RideRepository
	bookingRepo         repository.BookingRepository
	ledger              *Ledger
	gateway             PaymentGateway
	cache               redis.RideCacheInterface
	notificationService *NotificationService
	logger              logrus.FieldLogger
}

// NewReservationService creates a new ReservationService. cache and
// notificationService may be nil.
func NewReservationService(
	txManager repository.TxManager,
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	ledger *Ledger,
	gateway PaymentGateway,
	cache redis.RideCacheInterface,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *ReservationService {
	return &ReservationService{
		txManager:           txManager,
		rideRepo:            rideRepo,
		bookingRepo:         bookingRepo,
		ledger:              ledger,
		gateway:             gateway,
		cache:               cache,
		notificationService: notificationService,
		logger:              logger,
	}
}

// CreateReservationRequest contains the parameters for booking seats.
type CreateReservationRequest struct {
	RideID        string
	Seats         int
	BoardingPoint string
	DroppingPoint string
	PaymentMethod string // Optional: defaults to wallet
}

// ReservationResult is the committed state of a booking, its payment and its ride.
type ReservationResult struct {
	Booking *domain.Booking
	Payment *domain.Payment
	Ride    *domain.Ride
}

// Confirmed reports whether the reservation holds seats.
func (r *ReservationResult) Confirmed() bool {
	return r.Booking.Status == domain.BookingStatusConfirmed
}

// CreateReservation books seats on a ride and settles the payment.
//
// A declined payment is not an error: the booking and payment are committed
// as cancelled and failed, and no capacity is taken.
func (s *ReservationService) CreateReservation(ctx context.Context, caller domain.Identity, req CreateReservationRequest) (*ReservationResult, error) {
	if caller.Role != domain.RolePassenger {
		return nil, ErrNotPassenger
	}
	if err := checkID(req.RideID, ErrInvalidRideID); err != nil {
		return nil, err
	}
	if req.Seats < 1 {
		return nil, ErrInvalidSeatCount
	}
	method, err := ValidatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	// Advisory check outside the lock so hopeless requests fail fast.
	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if err := checkBookable(ride, req); err != nil {
		return nil, err
	}

	var result *ReservationResult
	err = s.txManager.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides.GetByIDForUpdate(ctx, req.RideID)
		if err != nil {
			return err
		}
		if err := checkBookable(ride, req); err != nil {
			return err
		}

		booked, err := repos.Bookings.HasConfirmed(ctx, caller.UserID, ride.ID)
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if booked {
			return ErrAlreadyBooked
		}

		now := time.Now()
		booking := &domain.Booking{
			ID:            uuid.New().String(),
			RideID:        ride.ID,
			PassengerID:   caller.UserID,
			BoardingPoint: req.BoardingPoint,
			DroppingPoint: req.DroppingPoint,
			Seats:         req.Seats,
			Status:        domain.BookingStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repos.Bookings.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		payment := &domain.Payment{
			ID:        uuid.New().String(),
			BookingID: booking.ID,
			Amount:    ride.Fare,
			Status:    domain.PaymentStatusPending,
			Method:    method,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		outcome, err := charge(ctx, s.gateway, payment)
		if err != nil {
			return err
		}
		if err := settle(ctx, repos, booking, payment, outcome); err != nil {
			return err
		}

		if booking.Status == domain.BookingStatusConfirmed {
			if err := s.ledger.Reserve(ride, booking.Seats); err != nil {
				return err
			}
			if err := repos.Rides.UpdateLedger(ctx, ride); err != nil {
				return fmt.Errorf("update ride capacity: %w", err)
			}
		}

		result = &ReservationResult{Booking: booking, Payment: payment, Ride: ride}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateConfirmedBooking) {
			return nil, ErrAlreadyBooked
		}
		return nil, err
	}

	s.invalidateRide(ctx, result.Ride.ID)

	entry := s.logger.WithFields(logrus.Fields{
		"ride_id":      result.Ride.ID,
		"booking_id":   result.Booking.ID,
		"passenger_id": caller.UserID,
		"seats":        result.Booking.Seats,
	})
	if result.Confirmed() {
		entry.Info("reservation confirmed")
		if s.notificationService != nil {
			s.notificationService.NotifyBookingConfirmed(result.Booking, result.Payment)
		}
	} else {
		entry.Warn("reservation payment failed")
		if s.notificationService != nil {
			s.notificationService.NotifyBookingPaymentFailed(result.Booking, result.Payment)
		}
	}

	return result, nil
}

// CancelReservation cancels the caller's booking and returns its seats to the ride.
// The payment keeps its settled status.
func (s *ReservationService) CancelReservation(ctx context.Context, caller domain.Identity, bookingID string) (*ReservationResult, error) {
	if caller.Role != domain.RolePassenger {
		return nil, ErrNotPassenger
	}
	if err := checkID(bookingID, ErrInvalidBookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != caller.UserID {
		return nil, ErrNotOwner
	}

	var result *ReservationResult
	err = s.txManager.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides.GetByIDForUpdate(ctx, booking.RideID)
		if err != nil {
			return err
		}

		// Re-read under the ride lock; a concurrent cancel may have won.
		booking, err := repos.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}

		if ride.Status != domain.RideStatusOpen {
			return ErrRideNotOpen
		}
		if booking.Status == domain.BookingStatusCancelled {
			return ErrBookingAlreadyCancelled
		}
		if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return fmt.Errorf("%w: booking %s -> %s", ErrInvalidStateTransition, booking.Status, domain.BookingStatusCancelled)
		}

		held := booking.Status == domain.BookingStatusConfirmed
		if err := repos.Bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusCancelled); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		booking.Status = domain.BookingStatusCancelled
		booking.UpdatedAt = time.Now()

		if held {
			if err := s.ledger.Release(ride, booking.Seats); err != nil {
				return err
			}
			if err := repos.Rides.UpdateLedger(ctx, ride); err != nil {
				return fmt.Errorf("update ride capacity: %w", err)
			}
		}

		payment, err := repos.Payments.GetByBookingID(ctx, booking.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("load payment: %w", err)
		}

		result = &ReservationResult{Booking: booking, Payment: payment, Ride: ride}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRide(ctx, result.Ride.ID)

	s.logger.WithFields(logrus.Fields{
		"ride_id":      result.Ride.ID,
		"booking_id":   result.Booking.ID,
		"passenger_id": caller.UserID,
		"seats":        result.Booking.Seats,
	}).Info("reservation cancelled")

	if s.notificationService != nil {
		s.notificationService.NotifyBookingCancelled(result.Booking)
	}

	return result, nil
}

// GetBooking retrieves a booking visible to the caller: its passenger, the
// ride's driver or an admin.
func (s *ReservationService) GetBooking(ctx context.Context, caller domain.Identity, bookingID string) (*domain.Booking, error) {
	if err := checkID(bookingID, ErrInvalidBookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch {
	case caller.Role == domain.RoleAdmin:
		return booking, nil
	case caller.Role == domain.RolePassenger && booking.PassengerID == caller.UserID:
		return booking, nil
	case caller.Role == domain.RoleDriver:
		ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
		if err != nil {
			return nil, fmt.Errorf("load ride of booking: %w", err)
		}
		if ride.DriverID == caller.UserID {
			return booking, nil
		}
	}

	return nil, ErrNotOwner
}

// ListPassengerBookings retrieves the caller's bookings matching the filter.
func (s *ReservationService) ListPassengerBookings(ctx context.Context, caller domain.Identity, filter domain.BookingFilter) ([]*domain.Booking, error) {
	if caller.Role != domain.RolePassenger {
		return nil, ErrNotPassenger
	}
	if filter.Status != "" &&
		filter.Status != domain.BookingStatusPending &&
		filter.Status != domain.BookingStatusConfirmed &&
		filter.Status != domain.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: unknown booking status %q", ErrValidation, filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: date range ends before it starts", ErrValidation)
	}

	return s.bookingRepo.ListByPassenger(ctx, caller.UserID, filter)
}

func (s *ReservationService) invalidateRide(ctx context.Context, rideID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRide(ctx, rideID); err != nil {
		s.logger.WithError(err).WithField("ride_id", rideID).Warn("invalidate ride cache")
	}
}

// checkBookable validates a reservation request against the ride's current state.
func checkBookable(ride *domain.Ride, req CreateReservationRequest) error {
	if !ride.HasBoardingPoint(req.BoardingPoint) || !ride.HasDroppingPoint(req.DroppingPoint) {
		return ErrInvalidStop
	}

	switch ride.Status {
	case domain.RideStatusCompleted, domain.RideStatusCancelled:
		return ErrRideNotOpen
	case domain.RideStatusFull:
		return fmt.Errorf("%w: ride is full", ErrInsufficientCapacity)
	}

	if req.Seats > ride.SeatsAvailable() {
		return fmt.Errorf("%w: %d seats requested, %d available",
			ErrInsufficientCapacity, req.Seats, ride.SeatsAvailable())
	}
	return nil
}
