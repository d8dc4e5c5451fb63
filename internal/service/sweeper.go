package service

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

const sweepLeaseName = "sweeper:complete-expired-rides"

// Sweeper periodically completes open rides whose end time has passed and
// credits the driver and passenger ride counters.
type Sweeper struct {
	txManager repository.TxManager
	lease     redis.LeaseStoreInterface
	cache     redis.RideCacheInterface
	leaseTTL  time.Duration
	nrApp     *newrelic.Application
	interval  time.Duration
	now       func() time.Time
	logger    logrus.FieldLogger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperClock overrides the clock used to find expired rides.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// WithSweeperLease makes each sweep take a named lease first, so only one
// replica sweeps at a time.
func WithSweeperLease(lease redis.LeaseStoreInterface, ttl time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.lease = lease
		s.leaseTTL = ttl
	}
}

// WithSweeperCache evicts completed rides from the ride read cache.
func WithSweeperCache(cache redis.RideCacheInterface) SweeperOption {
	return func(s *Sweeper) {
		s.cache = cache
	}
}

// WithSweeperNewRelic reports each sweep as a background transaction.
func WithSweeperNewRelic(app *newrelic.Application) SweeperOption {
	return func(s *Sweeper) {
		s.nrApp = app
	}
}

// NewSweeper creates a new Sweeper running every interval.
func NewSweeper(txManager repository.TxManager, interval time.Duration, logger logrus.FieldLogger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		txManager: txManager,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Skipped           bool // another replica holds the lease
	RidesCompleted    int
	DriverProfiles    int64
	PassengerProfiles int64
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("sweep expired rides")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep completes every open ride that ended before now, in one transaction.
// Running it again without new expired rides changes nothing.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if s.nrApp != nil {
		txn := s.nrApp.StartTransaction("sweeper/complete-expired-rides")
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	if s.lease != nil {
		acquired, err := s.lease.AcquireLease(ctx, sweepLeaseName, s.leaseTTL)
		if err != nil {
			return SweepResult{}, fmt.Errorf("acquire sweep lease: %w", err)
		}
		if !acquired {
			s.logger.Debug("sweep skipped: lease held elsewhere")
			return SweepResult{Skipped: true}, nil
		}
		defer func() {
			if err := s.lease.ReleaseLease(context.WithoutCancel(ctx), sweepLeaseName); err != nil {
				s.logger.WithError(err).Warn("release sweep lease")
			}
		}()
	}

	now := s.now()
	var result SweepResult
	var completedIDs []string
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		completed, err := repos.Rides.CompleteExpired(ctx, now)
		if err != nil {
			return fmt.Errorf("complete expired rides: %w", err)
		}
		if len(completed) == 0 {
			return nil
		}

		ids := rideIDs(completed)
		completedIDs = ids
		drivers, err := repos.Profiles.IncrementDriverRides(ctx, ids)
		if err != nil {
			return fmt.Errorf("increment driver rides: %w", err)
		}
		passengers, err := repos.Profiles.IncrementPassengerRides(ctx, ids)
		if err != nil {
			return fmt.Errorf("increment passenger rides: %w", err)
		}

		result = SweepResult{
			RidesCompleted:    len(completed),
			DriverProfiles:    drivers,
			PassengerProfiles: passengers,
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}

	s.evictRides(ctx, completedIDs)

	if result.RidesCompleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"rides_completed":    result.RidesCompleted,
			"driver_profiles":    result.DriverProfiles,
			"passenger_profiles": result.PassengerProfiles,
		}).Info("expired rides completed")
	}

	return result, nil
}

func (s *Sweeper) evictRides(ctx context.Context, ids []string) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.InvalidateRide(ctx, id); err != nil {
			s.logger.WithError(err).WithField("ride_id", id).Warn("invalidate ride cache")
		}
	}
}

func rideIDs(rides []domain.CompletedRide) []string {
	ids := make([]string, len(rides))
	for i, r := range rides {
		ids[i] = r.ID
	}
	return ids
}
