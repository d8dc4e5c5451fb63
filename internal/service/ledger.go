package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
)

// Ledger applies seat reservations and releases to a ride's capacity counters.
//
// The ledger holds no lock of its own. Callers pass a ride read with
// RideRepository.GetByIDForUpdate inside the transaction that will persist
// the result.
type Ledger struct {
	logger logrus.FieldLogger
	now    func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock overrides the clock used to decide whether a ride reopens.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a new Ledger.
func NewLedger(logger logrus.FieldLogger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve books seats on the ride and recomputes its status.
func (l *Ledger) Reserve(ride *domain.Ride, seats int) error {
	if seats < 1 {
		return ErrInvalidSeatCount
	}
	if err := l.checkBounds(ride); err != nil {
		return err
	}

	switch ride.Status {
	case domain.RideStatusCompleted, domain.RideStatusCancelled:
		return ErrRideNotOpen
	case domain.RideStatusFull:
		return fmt.Errorf("%w: ride is full", ErrInsufficientCapacity)
	}

	if ride.SeatsBooked+seats > ride.SeatsOffered {
		return fmt.Errorf("%w: %d seats requested, %d available",
			ErrInsufficientCapacity, seats, ride.SeatsAvailable())
	}

	ride.SeatsBooked += seats
	l.recompute(ride)
	return nil
}

// Release returns seats to the ride and recomputes its status.
func (l *Ledger) Release(ride *domain.Ride, seats int) error {
	if seats < 1 {
		return ErrInvalidSeatCount
	}
	if err := l.checkBounds(ride); err != nil {
		return err
	}

	if seats > ride.SeatsBooked {
		l.violation(ride, "release exceeds seats booked", seats)
		return fmt.Errorf("%w: releasing %d seats but only %d booked",
			ErrConsistencyViolation, seats, ride.SeatsBooked)
	}

	ride.SeatsBooked -= seats
	l.recompute(ride)
	return nil
}

// Resize changes the seats offered on an open or full ride.
func (l *Ledger) Resize(ride *domain.Ride, seatsOffered int) error {
	if err := l.checkBounds(ride); err != nil {
		return err
	}
	if seatsOffered < 1 || seatsOffered < ride.SeatsBooked {
		return ErrInvalidSeatsOffered
	}

	ride.SeatsOffered = seatsOffered
	l.recompute(ride)
	return nil
}

// recompute derives open/full from the counters. Terminal states are kept.
func (l *Ledger) recompute(ride *domain.Ride) {
	now := l.now()
	switch {
	case ride.Status == domain.RideStatusOpen && ride.SeatsBooked == ride.SeatsOffered:
		ride.Status = domain.RideStatusFull
	case ride.Status == domain.RideStatusFull && ride.SeatsBooked < ride.SeatsOffered && now.Before(ride.EndTime):
		ride.Status = domain.RideStatusOpen
	}
	ride.UpdatedAt = now
}

func (l *Ledger) checkBounds(ride *domain.Ride) error {
	if ride.SeatsBooked < 0 || ride.SeatsBooked > ride.SeatsOffered {
		l.violation(ride, "seats booked out of bounds", 0)
		return fmt.Errorf("%w: ride %s has %d of %d seats booked",
			ErrConsistencyViolation, ride.ID, ride.SeatsBooked, ride.SeatsOffered)
	}
	return nil
}

func (l *Ledger) violation(ride *domain.Ride, msg string, seats int) {
	l.logger.WithFields(logrus.Fields{
		"ride_id":       ride.ID,
		"seats_offered": ride.SeatsOffered,
		"seats_booked":  ride.SeatsBooked,
		"status":        ride.Status,
		"seats":         seats,
	}).Error(msg)
}
