package repository

import "context"

// Repositories groups the repositories bound to one transaction.
type Repositories struct {
	Rides    RideRepository
	Bookings BookingRepository
	Payments PaymentRepository
	Profiles ProfileRepository
}

// TxManager runs units of work atomically.
//
// fn receives repositories bound to the transaction. If fn returns an error or
// panics, or ctx is cancelled before commit, every change made through those
// repositories is rolled back. Row locks taken inside fn are released on
// commit or rollback.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
