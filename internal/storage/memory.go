package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

// MemoryRideStore keeps rides in a mutex-guarded map. The conditional
// updates hold the lock across check and write, which is what makes the
// accept transition atomic here.
type MemoryRideStore struct {
	mu    sync.RWMutex
	rides map[string]*models.RideRequest
}

func NewMemoryRideStore() *MemoryRideStore {
	return &MemoryRideStore{rides: make(map[string]*models.RideRequest)}
}

func (m *MemoryRideStore) Create(ctx context.Context, r *models.RideRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = NewID()
	}
	cp := *r
	m.rides[r.ID] = &cp
	return r.ID, nil
}

func (m *MemoryRideStore) GetByID(ctx context.Context, id string) (*models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryRideStore) ListPending(ctx context.Context) ([]models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RideRequest, 0)
	for _, r := range m.rides {
		if r.Status == models.StatusPending {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRideStore) ListByRider(ctx context.Context, riderID string) ([]models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RideRequest, 0)
	for _, r := range m.rides {
		if r.RiderID == riderID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRideStore) AcceptPending(ctx context.Context, id, driverID string, matchCode int, eta *string, acceptedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != models.StatusPending {
		return false, nil
	}
	r.Status = models.StatusAccepted
	r.DriverID = &driverID
	r.MatchCode = &matchCode
	r.ETA = eta
	r.AcceptedAt = &acceptedAt
	return true, nil
}

func (m *MemoryRideStore) Transition(ctx context.Context, id string, from, to models.RideStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

// MemoryDriverStore keeps one availability record per user id.
type MemoryDriverStore struct {
	mu      sync.RWMutex
	drivers map[string]models.Driver
}

func NewMemoryDriverStore() *MemoryDriverStore {
	return &MemoryDriverStore{drivers: make(map[string]models.Driver)}
}

func (m *MemoryDriverStore) Upsert(ctx context.Context, d models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Updated = time.Now()
	m.drivers[d.UserID] = d
	return nil
}

func (m *MemoryDriverStore) ListAvailable(ctx context.Context) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0)
	for _, d := range m.drivers {
		if d.Available {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryDriverStore) GetByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// MemoryTripStore enforces the one-trip-per-ride constraint in Create.
type MemoryTripStore struct {
	mu     sync.RWMutex
	trips  map[string]*models.Trip
	byRide map[string]string
}

func NewMemoryTripStore() *MemoryTripStore {
	return &MemoryTripStore{trips: make(map[string]*models.Trip), byRide: make(map[string]string)}
}

func (m *MemoryTripStore) Create(ctx context.Context, t *models.Trip) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRide[t.RideID]; ok {
		return "", ErrConflict
	}
	if t.ID == "" {
		t.ID = NewID()
	}
	cp := *t
	m.trips[t.ID] = &cp
	m.byRide[t.RideID] = t.ID
	return t.ID, nil
}

func (m *MemoryTripStore) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryTripStore) GetByRideID(ctx context.Context, rideID string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byRide[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.trips[id]
	return &cp, nil
}

func (m *MemoryTripStore) Close(ctx context.Context, id string, fare float64, endedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return false, nil
	}
	t.Fare = fare
	t.EndTime = &endedAt
	return true, nil
}

func (m *MemoryTripStore) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return false, nil
	}
	t.PaymentStatus = status
	return true, nil
}

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (m *MemoryUserStore) Create(ctx context.Context, u *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = NewID()
	}
	m.users[u.ID] = *u
	return u.ID, nil
}

func (m *MemoryUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
