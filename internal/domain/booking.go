package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// bookingTransitions lists the allowed next states for each booking state.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled},
}

// CanTransitionTo reports whether a booking may move from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is a passenger's seat reservation against one ride.
type Booking struct {
	ID            string
	RideID        string
	PassengerID   string
	BoardingPoint string
	DroppingPoint string
	Seats         int
	Status        BookingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookingFilter narrows a passenger's booking listing. Zero values are ignored.
type BookingFilter struct {
	Status        BookingStatus
	BoardingPoint string
	DroppingPoint string
	From          time.Time // ride start time lower bound
	To            time.Time // ride start time upper bound
}
