package repository

import (
	"context"

	"carpool/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByBookingID retrieves the payment of a booking.
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)

	// UpdateStatus records the settlement outcome of a payment.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, transactionRef string) error

	// ListByPassenger retrieves payments of all bookings made by a passenger.
	ListByPassenger(ctx context.Context, passengerID string) ([]*domain.Payment, error)
}
