package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE WITH TRANSACTIONS AND ROW LOCKS
// ──────────────────────────────────────────────

// MemStore is an in-memory repository.TxManager. Writes made inside WithinTx
// are staged on the transaction and applied on commit only. Ride row locks
// taken with GetByIDForUpdate are held until the transaction ends.
type MemStore struct {
	mu             sync.Mutex
	rides          map[string]*domain.Ride
	bookings       map[string]*domain.Booking
	payments       map[string]*domain.Payment
	driverRides    map[string]int
	passengerRides map[string]int
	rideLocks      map[string]chan struct{}

	// Counters for verification
	CommitCount   int32
	RollbackCount int32

	// Error injection
	UpdateLedgerError  error
	CreatePaymentError error
	IncrementError     error

	// AfterLock, when set, runs after a ride lock is acquired.
	AfterLock func(rideID string)
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		rides:          make(map[string]*domain.Ride),
		bookings:       make(map[string]*domain.Booking),
		payments:       make(map[string]*domain.Payment),
		driverRides:    make(map[string]int),
		passengerRides: make(map[string]int),
		rideLocks:      make(map[string]chan struct{}),
	}
}

// AddRide stores a committed ride.
func (m *MemStore) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *ride
	m.rides[ride.ID] = &r
}

// AddBooking stores a committed booking.
func (m *MemStore) AddBooking(booking *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := *booking
	m.bookings[booking.ID] = &b
}

// Ride returns the committed state of a ride.
func (m *MemStore) Ride(id string) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

// Booking returns the committed state of a booking.
func (m *MemStore) Booking(id string) *domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil
	}
	c := *b
	return &c
}

// Payment returns the committed state of a payment.
func (m *MemStore) Payment(id string) *domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// BookingCount returns the number of committed bookings.
func (m *MemStore) BookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// PaymentCount returns the number of committed payments.
func (m *MemStore) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// ConfirmedSeats sums the seats of committed confirmed bookings on a ride.
func (m *MemStore) ConfirmedSeats(rideID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, b := range m.bookings {
		if b.RideID == rideID && b.Status == domain.BookingStatusConfirmed {
			total += b.Seats
		}
	}
	return total
}

// Stats returns the committed ride counters of a user.
func (m *MemStore) Stats(userID string) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driverRides[userID], m.passengerRides[userID]
}

// Repos returns repositories outside any transaction.
func (m *MemStore) Repos() repository.Repositories {
	return m.repos(nil)
}

func (m *MemStore) repos(tx *memTx) repository.Repositories {
	return repository.Repositories{
		Rides:    &memRides{store: m, tx: tx},
		Bookings: &memBookings{store: m, tx: tx},
		Payments: &memPayments{store: m, tx: tx},
		Profiles: &memProfiles{store: m, tx: tx},
	}
}

// WithinTx runs fn in a staged transaction.
func (m *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx := &memTx{
		rides:          make(map[string]*domain.Ride),
		bookings:       make(map[string]*domain.Booking),
		payments:       make(map[string]*domain.Payment),
		driverDelta:    make(map[string]int),
		passengerDelta: make(map[string]int),
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(ctx, m.repos(tx)); err != nil {
		m.rollback(tx)
		return err
	}
	if err := ctx.Err(); err != nil {
		m.rollback(tx)
		return err
	}

	m.mu.Lock()
	for id, r := range tx.rides {
		m.rides[id] = r
	}
	for id, b := range tx.bookings {
		m.bookings[id] = b
	}
	for id, p := range tx.payments {
		m.payments[id] = p
	}
	for id, n := range tx.driverDelta {
		m.driverRides[id] += n
	}
	for id, n := range tx.passengerDelta {
		m.passengerRides[id] += n
	}
	m.mu.Unlock()

	atomic.AddInt32(&m.CommitCount, 1)
	m.unlockAll(tx)
	return nil
}

func (m *MemStore) rollback(tx *memTx) {
	atomic.AddInt32(&m.RollbackCount, 1)
	m.unlockAll(tx)
}

func (m *MemStore) lockRide(ctx context.Context, tx *memTx, id string) error {
	for _, held := range tx.held {
		if held == id {
			return nil
		}
	}

	m.mu.Lock()
	lock, ok := m.rideLocks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		m.rideLocks[id] = lock
	}
	m.mu.Unlock()

	select {
	case lock <- struct{}{}:
		tx.held = append(tx.held, id)
		if m.AfterLock != nil {
			m.AfterLock(id)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemStore) unlockAll(tx *memTx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range tx.held {
		<-m.rideLocks[id]
	}
	tx.held = nil
}

// snapshotRides merges committed rides with the transaction's staged writes.
func (m *MemStore) snapshotRides(tx *memTx) map[string]domain.Ride {
	m.mu.Lock()
	out := make(map[string]domain.Ride, len(m.rides))
	for id, r := range m.rides {
		out[id] = *r
	}
	m.mu.Unlock()
	if tx != nil {
		for id, r := range tx.rides {
			out[id] = *r
		}
	}
	return out
}

func (m *MemStore) snapshotBookings(tx *memTx) map[string]domain.Booking {
	m.mu.Lock()
	out := make(map[string]domain.Booking, len(m.bookings))
	for id, b := range m.bookings {
		out[id] = *b
	}
	m.mu.Unlock()
	if tx != nil {
		for id, b := range tx.bookings {
			out[id] = *b
		}
	}
	return out
}

func (m *MemStore) snapshotPayments(tx *memTx) map[string]domain.Payment {
	m.mu.Lock()
	out := make(map[string]domain.Payment, len(m.payments))
	for id, p := range m.payments {
		out[id] = *p
	}
	m.mu.Unlock()
	if tx != nil {
		for id, p := range tx.payments {
			out[id] = *p
		}
	}
	return out
}

type memTx struct {
	rides          map[string]*domain.Ride
	bookings       map[string]*domain.Booking
	payments       map[string]*domain.Payment
	driverDelta    map[string]int
	passengerDelta map[string]int
	held           []string
}

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

type memRides struct {
	store *MemStore
	tx    *memTx
}

func (r *memRides) put(ride *domain.Ride) {
	c := *ride
	if r.tx != nil {
		r.tx.rides[ride.ID] = &c
		return
	}
	r.store.mu.Lock()
	r.store.rides[ride.ID] = &c
	r.store.mu.Unlock()
}

func (r *memRides) Create(ctx context.Context, ride *domain.Ride) error {
	r.put(ride)
	return nil
}

func (r *memRides) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	ride, ok := r.store.snapshotRides(r.tx)[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ride, nil
}

func (r *memRides) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	if r.tx == nil {
		return nil, errors.New("GetByIDForUpdate requires a transaction")
	}
	if err := r.store.lockRide(ctx, r.tx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *memRides) ListOpen(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error) {
	var out []*domain.Ride
	for _, ride := range r.store.snapshotRides(r.tx) {
		ride := ride
		if ride.Status != domain.RideStatusOpen {
			continue
		}
		if filter.Source != "" && !strings.EqualFold(ride.Source, filter.Source) {
			continue
		}
		if filter.Destination != "" && !strings.EqualFold(ride.Destination, filter.Destination) {
			continue
		}
		if !filter.Date.IsZero() {
			y1, m1, d1 := ride.StartTime.Date()
			y2, m2, d2 := filter.Date.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		out = append(out, &ride)
	}
	return out, nil
}

func (r *memRides) ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	var out []*domain.Ride
	for _, ride := range r.store.snapshotRides(r.tx) {
		ride := ride
		if ride.DriverID == driverID {
			out = append(out, &ride)
		}
	}
	return out, nil
}

func (r *memRides) HasOverlapping(ctx context.Context, driverID string, start, end time.Time, excludeID string) (bool, error) {
	for _, ride := range r.store.snapshotRides(r.tx) {
		if ride.DriverID != driverID || ride.ID == excludeID {
			continue
		}
		if ride.Status != domain.RideStatusOpen && ride.Status != domain.RideStatusFull {
			continue
		}
		if ride.StartTime.Before(end) && ride.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRides) Update(ctx context.Context, ride *domain.Ride) error {
	if _, err := r.GetByID(ctx, ride.ID); err != nil {
		return err
	}
	r.put(ride)
	return nil
}

func (r *memRides) UpdateLedger(ctx context.Context, ride *domain.Ride) error {
	if r.store.UpdateLedgerError != nil {
		return r.store.UpdateLedgerError
	}
	current, err := r.GetByID(ctx, ride.ID)
	if err != nil {
		return err
	}
	current.SeatsBooked = ride.SeatsBooked
	current.Status = ride.Status
	current.UpdatedAt = ride.UpdatedAt
	r.put(current)
	return nil
}

func (r *memRides) CompleteExpired(ctx context.Context, now time.Time) ([]domain.CompletedRide, error) {
	var completed []domain.CompletedRide
	for _, ride := range r.store.snapshotRides(r.tx) {
		ride := ride
		if ride.Status != domain.RideStatusOpen || !ride.EndTime.Before(now) {
			continue
		}
		ride.Status = domain.RideStatusCompleted
		ride.UpdatedAt = now
		r.put(&ride)
		completed = append(completed, domain.CompletedRide{ID: ride.ID, DriverID: ride.DriverID})
	}
	return completed, nil
}

// ──────────────────────────────────────────────
// BOOKINGS
// ──────────────────────────────────────────────

type memBookings struct {
	store *MemStore
	tx    *memTx
}

func (r *memBookings) put(booking *domain.Booking) {
	c := *booking
	if r.tx != nil {
		r.tx.bookings[booking.ID] = &c
		return
	}
	r.store.mu.Lock()
	r.store.bookings[booking.ID] = &c
	r.store.mu.Unlock()
}

func (r *memBookings) Create(ctx context.Context, booking *domain.Booking) error {
	r.put(booking)
	return nil
}

func (r *memBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	booking, ok := r.store.snapshotBookings(r.tx)[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &booking, nil
}

func (r *memBookings) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	all := r.store.snapshotBookings(r.tx)
	booking, ok := all[id]
	if !ok {
		return repository.ErrNotFound
	}
	if status == domain.BookingStatusConfirmed {
		for _, other := range all {
			if other.ID != id && other.PassengerID == booking.PassengerID &&
				other.RideID == booking.RideID && other.Status == domain.BookingStatusConfirmed {
				return repository.ErrDuplicateConfirmedBooking
			}
		}
	}
	booking.Status = status
	booking.UpdatedAt = time.Now()
	r.put(&booking)
	return nil
}

func (r *memBookings) HasConfirmed(ctx context.Context, passengerID, rideID string) (bool, error) {
	for _, b := range r.store.snapshotBookings(r.tx) {
		if b.PassengerID == passengerID && b.RideID == rideID && b.Status == domain.BookingStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBookings) ListByPassenger(ctx context.Context, passengerID string, filter domain.BookingFilter) ([]*domain.Booking, error) {
	rides := r.store.snapshotRides(r.tx)
	var out []*domain.Booking
	for _, b := range r.store.snapshotBookings(r.tx) {
		b := b
		if b.PassengerID != passengerID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.BoardingPoint != "" && !strings.EqualFold(b.BoardingPoint, filter.BoardingPoint) {
			continue
		}
		if filter.DroppingPoint != "" && !strings.EqualFold(b.DroppingPoint, filter.DroppingPoint) {
			continue
		}
		start := rides[b.RideID].StartTime
		if !filter.From.IsZero() && start.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && start.After(filter.To) {
			continue
		}
		out = append(out, &b)
	}
	return out, nil
}

func (r *memBookings) ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range r.store.snapshotBookings(r.tx) {
		b := b
		if b.RideID == rideID {
			out = append(out, &b)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// PAYMENTS
// ──────────────────────────────────────────────

type memPayments struct {
	store *MemStore
	tx    *memTx
}

func (r *memPayments) put(payment *domain.Payment) {
	c := *payment
	if r.tx != nil {
		r.tx.payments[payment.ID] = &c
		return
	}
	r.store.mu.Lock()
	r.store.payments[payment.ID] = &c
	r.store.mu.Unlock()
}

func (r *memPayments) Create(ctx context.Context, payment *domain.Payment) error {
	if r.store.CreatePaymentError != nil {
		return r.store.CreatePaymentError
	}
	r.put(payment)
	return nil
}

func (r *memPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	payment, ok := r.store.snapshotPayments(r.tx)[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &payment, nil
}

func (r *memPayments) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	for _, p := range r.store.snapshotPayments(r.tx) {
		if p.BookingID == bookingID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPayments) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, transactionRef string) error {
	payment, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	payment.Status = status
	payment.TransactionRef = transactionRef
	r.put(payment)
	return nil
}

func (r *memPayments) ListByPassenger(ctx context.Context, passengerID string) ([]*domain.Payment, error) {
	bookings := r.store.snapshotBookings(r.tx)
	var out []*domain.Payment
	for _, p := range r.store.snapshotPayments(r.tx) {
		p := p
		if bookings[p.BookingID].PassengerID == passengerID {
			out = append(out, &p)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// PROFILES
// ──────────────────────────────────────────────

type memProfiles struct {
	store *MemStore
	tx    *memTx
}

func (r *memProfiles) IncrementDriverRides(ctx context.Context, rideIDs []string) (int64, error) {
	if r.store.IncrementError != nil {
		return 0, r.store.IncrementError
	}
	rides := r.store.snapshotRides(r.tx)
	delta := make(map[string]int)
	for _, id := range rideIDs {
		if ride, ok := rides[id]; ok {
			delta[ride.DriverID]++
		}
	}
	r.apply(delta, true)
	return int64(len(delta)), nil
}

func (r *memProfiles) IncrementPassengerRides(ctx context.Context, rideIDs []string) (int64, error) {
	if r.store.IncrementError != nil {
		return 0, r.store.IncrementError
	}
	wanted := make(map[string]bool, len(rideIDs))
	for _, id := range rideIDs {
		wanted[id] = true
	}
	delta := make(map[string]int)
	for _, b := range r.store.snapshotBookings(r.tx) {
		if wanted[b.RideID] && b.Status != domain.BookingStatusCancelled {
			delta[b.PassengerID]++
		}
	}
	r.apply(delta, false)
	return int64(len(delta)), nil
}

func (r *memProfiles) apply(delta map[string]int, driver bool) {
	if r.tx != nil {
		target := r.tx.passengerDelta
		if driver {
			target = r.tx.driverDelta
		}
		for id, n := range delta {
			target[id] += n
		}
		return
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	target := r.store.passengerRides
	if driver {
		target = r.store.driverRides
	}
	for id, n := range delta {
		target[id] += n
	}
}

func (r *memProfiles) GetStats(ctx context.Context, userID string) (*domain.RideStats, error) {
	driver, passenger := r.store.Stats(userID)
	return &domain.RideStats{UserID: userID, RidesAsDriver: driver, RidesAsPassenger: passenger}, nil
}

// ──────────────────────────────────────────────
// CATALOG
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository(vehicles ...*domain.Vehicle) *MockVehicleRepository {
	m := &MockVehicleRepository{vehicles: make(map[string]*domain.Vehicle)}
	for _, v := range vehicles {
		m.vehicles[v.ID] = v
	}
	return m
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

// MockLocationRepository is a mock implementation of LocationRepository.
type MockLocationRepository struct {
	mu        sync.Mutex
	locations map[string]*domain.Location
}

// NewMockLocationRepository creates a new mock location repository.
func NewMockLocationRepository() *MockLocationRepository {
	return &MockLocationRepository{locations: make(map[string]*domain.Location)}
}

func (m *MockLocationRepository) GetOrCreate(ctx context.Context, name string) (*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(name))
	if loc, ok := m.locations[key]; ok {
		return loc, nil
	}
	loc := &domain.Location{ID: uuid.New().String(), Name: strings.TrimSpace(name)}
	m.locations[key] = loc
	return loc, nil
}

// ──────────────────────────────────────────────
// CACHE
// ──────────────────────────────────────────────

// MockRideCache is a mock implementation of redis.RideCacheInterface.
type MockRideCache struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride

	GetCallCount        int32
	InvalidateCallCount int32
	GetError            error
}

// NewMockRideCache creates a new mock ride cache.
func NewMockRideCache() *MockRideCache {
	return &MockRideCache{rides: make(map[string]*domain.Ride)}
}

func (m *MockRideCache) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *MockRideCache) SetRide(ctx context.Context, ride *domain.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ride
	m.rides[ride.ID] = &c
	return nil
}

func (m *MockRideCache) InvalidateRide(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

// Has reports whether the ride is cached.
func (m *MockRideCache) Has(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rides[rideID]
	return ok
}

// MockLeaseStore is a mock implementation of redis.LeaseStoreInterface.
type MockLeaseStore struct {
	mu   sync.Mutex
	held map[string]bool

	ReleaseCallCount int32
}

// NewMockLeaseStore creates a new mock lease store.
func NewMockLeaseStore() *MockLeaseStore {
	return &MockLeaseStore{held: make(map[string]bool)}
}

// Hold marks a lease as taken by someone else.
func (m *MockLeaseStore) Hold(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = true
}

func (m *MockLeaseStore) AcquireLease(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *MockLeaseStore) ReleaseLease(ctx context.Context, name string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

// ──────────────────────────────────────────────
// PAYMENT GATEWAY AND PUBLISHER
// ──────────────────────────────────────────────

// MockGateway is a PaymentGateway with a scripted outcome.
type MockGateway struct {
	Decline bool
	Err     error

	ChargeCallCount int32
}

func (g *MockGateway) Charge(ctx context.Context, req service.ChargeRequest) (service.ChargeResult, error) {
	atomic.AddInt32(&g.ChargeCallCount, 1)
	if g.Err != nil {
		return service.ChargeResult{}, g.Err
	}
	if g.Decline {
		return service.ChargeResult{Success: false}, nil
	}
	return service.ChargeResult{Success: true, TransactionRef: "txn-" + req.PaymentID}, nil
}

// RecordingPublisher records published notifications.
type RecordingPublisher struct {
	mu            sync.Mutex
	notifications []service.Notification

	// Err is returned from every Publish call.
	Err error
	// Block, when set, stalls Publish until it is closed.
	Block chan struct{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, n service.Notification) error {
	if p.Block != nil {
		<-p.Block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	return p.Err
}

// Types returns the types of published notifications in order.
func (p *RecordingPublisher) Types() []service.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]service.NotificationType, len(p.notifications))
	for i, n := range p.notifications {
		out[i] = n.Type
	}
	return out
}

// ──────────────────────────────────────────────
// FIXTURES
// ──────────────────────────────────────────────

var (
	passenger  = domain.Identity{UserID: "passenger-1", Role: domain.RolePassenger}
	passenger2 = domain.Identity{UserID: "passenger-2", Role: domain.RolePassenger}
	driver     = domain.Identity{UserID: "driver-1", Role: domain.RoleDriver}
	driver2    = domain.Identity{UserID: "driver-2", Role: domain.RoleDriver}
	admin      = domain.Identity{UserID: "admin-1", Role: domain.RoleAdmin}
)

const (
	rideID1         = "6f1c2a9e-3b7d-4c52-9e1a-000000000001"
	rideID2         = "6f1c2a9e-3b7d-4c52-9e1a-000000000002"
	rideID3         = "6f1c2a9e-3b7d-4c52-9e1a-000000000003"
	endedRideID     = "6f1c2a9e-3b7d-4c52-9e1a-0000000000e0"
	laterRideID     = "6f1c2a9e-3b7d-4c52-9e1a-0000000000e1"
	fullRideID      = "6f1c2a9e-3b7d-4c52-9e1a-0000000000f0"
	cancelledRideID = "6f1c2a9e-3b7d-4c52-9e1a-0000000000c0"
	bookingID1      = "0b5e8d41-92c6-4f0a-8d3e-000000000001"
	bookingID2      = "0b5e8d41-92c6-4f0a-8d3e-000000000002"
	vehicleID1      = "a7d3f0c2-5e19-4b8a-b6c4-000000000001"
	vehicleID2      = "a7d3f0c2-5e19-4b8a-b6c4-000000000002"
)

// newTestLogger returns a logger that records entries instead of printing them.
func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

// openRide returns an open ride owned by driver-1 starting tomorrow.
func openRide(id string, offered, booked int) *domain.Ride {
	start := time.Now().Add(24 * time.Hour)
	return &domain.Ride{
		ID:             id,
		DriverID:       driver.UserID,
		VehicleID:      vehicleID1,
		SourceID:       "loc-pune",
		Source:         "Pune",
		DestinationID:  "loc-mumbai",
		Destination:    "Mumbai",
		BoardingPoints: []string{"Shivajinagar", "Wakad"},
		DroppingPoints: []string{"Dadar", "Andheri"},
		Fare:           decimal.NewFromInt(450),
		SeatsOffered:   offered,
		SeatsBooked:    booked,
		Status:         domain.RideStatusOpen,
		StartTime:      start,
		EndTime:        start.Add(3 * time.Hour),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func bookRequest(rideID string, seats int) service.CreateReservationRequest {
	return service.CreateReservationRequest{
		RideID:        rideID,
		Seats:         seats,
		BoardingPoint: "Wakad",
		DroppingPoint: "Dadar",
	}
}

type reservationFixture struct {
	store     *MemStore
	gateway   *MockGateway
	cache     *MockRideCache
	publisher *RecordingPublisher
	notifier  *service.NotificationService
	logHook   *test.Hook
	svc       *service.ReservationService
}

func newReservationFixture() *reservationFixture {
	logger, hook := newTestLogger()
	store := NewMemStore()
	gateway := &MockGateway{}
	cache := NewMockRideCache()
	publisher := &RecordingPublisher{}
	notifier := service.NewNotificationService(publisher, logger, 64, time.Second)
	notifier.Start()

	repos := store.Repos()
	svc := service.NewReservationService(
		store,
		repos.Rides,
		repos.Bookings,
		service.NewLedger(logger),
		gateway,
		cache,
		notifier,
		logger,
	)

	return &reservationFixture{
		store:     store,
		gateway:   gateway,
		cache:     cache,
		publisher: publisher,
		notifier:  notifier,
		logHook:   hook,
		svc:       svc,
	}
}
