package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// CanTransitionTo reports whether a payment may move from s to next.
// Only pending payments move; success and failed are terminal.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending &&
		(next == PaymentStatusSuccess || next == PaymentStatusFailed)
}

// PaymentMethod represents how a passenger pays for a booking.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodCash   PaymentMethod = "cash"
)

// Payment settles exactly one booking.
type Payment struct {
	ID             string
	BookingID      string
	Amount         decimal.Decimal
	Status         PaymentStatus
	Method         PaymentMethod
	TransactionRef string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
