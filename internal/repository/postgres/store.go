package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carpool/internal/repository"
)

// Store is a PostgreSQL implementation of repository.TxManager.
type Store struct {
	db *sql.DB
}

// NewStore creates a new transaction manager over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx executes fn within a database transaction.
//   - If fn returns an error, the transaction is rolled back and the error is returned.
//   - If fn panics, the transaction is rolled back and the panic is rethrown.
//   - If ctx is cancelled, database/sql rolls the transaction back.
//   - On success, the transaction is committed and its row locks released.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	repos := repository.Repositories{
		Rides:    NewRideRepositoryWithTx(tx),
		Bookings: NewBookingRepositoryWithTx(tx),
		Payments: NewPaymentRepositoryWithTx(tx),
		Profiles: NewProfileRepositoryWithTx(tx),
	}

	if err := fn(ctx, repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ensure Store implements repository.TxManager.
var _ repository.TxManager = (*Store)(nil)
