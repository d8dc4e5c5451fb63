package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RideStatus represents the current status of a ride offer.
type RideStatus string

const (
	RideStatusOpen      RideStatus = "open"
	RideStatusFull      RideStatus = "full"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// Ride is a driver's shared-ride offer. Its seat counters form the capacity
// ledger for the ride.
type Ride struct {
	ID             string
	DriverID       string
	VehicleID      string
	SourceID       string
	Source         string
	DestinationID  string
	Destination    string
	BoardingPoints []string
	DroppingPoints []string
	Fare           decimal.Decimal
	SeatsOffered   int
	SeatsBooked    int
	Status         RideStatus
	StartTime      time.Time
	EndTime        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SeatsAvailable is derived from the two counters and never stored.
func (r *Ride) SeatsAvailable() int {
	return r.SeatsOffered - r.SeatsBooked
}

// HasBoardingPoint reports whether point is one of the ride's boarding stops.
func (r *Ride) HasBoardingPoint(point string) bool {
	return contains(r.BoardingPoints, point)
}

// HasDroppingPoint reports whether point is one of the ride's dropping stops.
func (r *Ride) HasDroppingPoint(point string) bool {
	return contains(r.DroppingPoints, point)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// CompletedRide identifies a ride transitioned to completed by a sweep.
type CompletedRide struct {
	ID       string
	DriverID string
}

// RideFilter narrows ride listings. Zero values are ignored.
type RideFilter struct {
	Source      string
	Destination string
	Date        time.Time
}
