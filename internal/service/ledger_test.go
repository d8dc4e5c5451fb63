package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/service"
)

func TestLedger_ReserveUpToCapacity_MarksFull(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger()
	ledger := service.NewLedger(logger)
	ride := openRide(rideID1, 4, 0)

	if err := ledger.Reserve(ride, 3); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ride.Status != domain.RideStatusOpen {
		t.Errorf("expected open after 3 of 4, got %s", ride.Status)
	}

	if err := ledger.Reserve(ride, 1); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ride.SeatsBooked != 4 || ride.Status != domain.RideStatusFull {
		t.Errorf("expected 4 booked and full, got %d %s", ride.SeatsBooked, ride.Status)
	}
	if ride.SeatsAvailable() != 0 {
		t.Errorf("expected 0 available, got %d", ride.SeatsAvailable())
	}
}

func TestLedger_ReserveBeyondCapacity_Fails(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		offered int
		booked  int
		status  domain.RideStatus
		seats   int
		wantErr error
	}{
		{"full ride", 4, 4, domain.RideStatusFull, 1, service.ErrInsufficientCapacity},
		{"more than available", 4, 2, domain.RideStatusOpen, 3, service.ErrInsufficientCapacity},
		{"completed ride", 4, 0, domain.RideStatusCompleted, 1, service.ErrRideNotOpen},
		{"cancelled ride", 4, 0, domain.RideStatusCancelled, 1, service.ErrInvalidStateTransition},
		{"zero seats", 4, 0, domain.RideStatusOpen, 0, service.ErrInvalidSeatCount},
		{"counter out of bounds", 4, 5, domain.RideStatusOpen, 1, service.ErrConsistencyViolation},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, _ := newTestLogger()
			ledger := service.NewLedger(logger)
			ride := openRide(rideID1, tc.offered, tc.booked)
			ride.Status = tc.status

			err := ledger.Reserve(ride, tc.seats)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if ride.SeatsBooked != tc.booked || ride.Status != tc.status {
				t.Errorf("ride changed on rejected reserve: %d %s", ride.SeatsBooked, ride.Status)
			}
		})
	}
}

func TestLedger_Release_ReopensFullRideBeforeEnd(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger()
	ledger := service.NewLedger(logger)
	ride := openRide(rideID1, 4, 4)
	ride.Status = domain.RideStatusFull

	if err := ledger.Release(ride, 2); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ride.SeatsBooked != 2 || ride.Status != domain.RideStatusOpen {
		t.Errorf("expected 2 booked and open, got %d %s", ride.SeatsBooked, ride.Status)
	}
}

func TestLedger_Release_AfterEndTimeStaysFull(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger()
	ride := openRide(rideID1, 4, 4)
	ride.Status = domain.RideStatusFull
	ledger := service.NewLedger(logger, service.WithLedgerClock(func() time.Time {
		return ride.EndTime.Add(time.Minute)
	}))

	if err := ledger.Release(ride, 1); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ride.Status != domain.RideStatusFull {
		t.Errorf("expected full after end time, got %s", ride.Status)
	}
}

func TestLedger_ReleaseMoreThanBooked_IsConsistencyViolation(t *testing.T) {
	t.Parallel()

	logger, hook := newTestLogger()
	ledger := service.NewLedger(logger)
	ride := openRide(rideID1, 4, 1)

	err := ledger.Release(ride, 2)
	if !errors.Is(err, service.ErrConsistencyViolation) {
		t.Fatalf("expected consistency violation, got %v", err)
	}
	if ride.SeatsBooked != 1 {
		t.Errorf("expected counter untouched, got %d", ride.SeatsBooked)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected an error log entry, got %+v", entry)
	}
	if entry.Data["ride_id"] != rideID1 {
		t.Errorf("expected ride_id field, got %v", entry.Data)
	}
}

func TestLedger_Resize(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger()
	ledger := service.NewLedger(logger)

	ride := openRide(rideID1, 4, 2)
	if err := ledger.Resize(ride, 2); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ride.Status != domain.RideStatusFull {
		t.Errorf("expected full after shrinking to booked, got %s", ride.Status)
	}

	if err := ledger.Resize(ride, 3); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ride.Status != domain.RideStatusOpen {
		t.Errorf("expected open after growing, got %s", ride.Status)
	}

	if err := ledger.Resize(ride, 1); !errors.Is(err, service.ErrInvalidSeatsOffered) {
		t.Errorf("expected ErrInvalidSeatsOffered below booked, got %v", err)
	}
}
