package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint is violated,
	// e.g. a second trip for the same ride.
	ErrConflict = errors.New("record already exists")
)

// RideStore persists ride requests. AcceptPending and Transition are the
// only mutation paths after creation; both are conditional on the record's
// current status so concurrent writers cannot interleave partial updates.
type RideStore interface {
	Create(ctx context.Context, r *models.RideRequest) (string, error)
	GetByID(ctx context.Context, id string) (*models.RideRequest, error)
	ListPending(ctx context.Context) ([]models.RideRequest, error)
	ListByRider(ctx context.Context, riderID string) ([]models.RideRequest, error)

	// AcceptPending atomically moves the ride from pending to accepted,
	// setting driver id, match code, eta and timestamp together. It returns
	// false, without mutating, when the ride is no longer pending.
	AcceptPending(ctx context.Context, id, driverID string, matchCode int, eta *string, acceptedAt time.Time) (bool, error)

	// Transition atomically moves the ride from one status to the next.
	// Returns false when the ride was not in the expected prior status.
	Transition(ctx context.Context, id string, from, to models.RideStatus) (bool, error)
}

// DriverStore persists driver availability records, one per user id.
type DriverStore interface {
	Upsert(ctx context.Context, d models.Driver) error
	ListAvailable(ctx context.Context) ([]models.Driver, error)
	GetByUserID(ctx context.Context, userID string) (*models.Driver, error)
}

// TripStore persists trips. RideID is unique across trips.
type TripStore interface {
	Create(ctx context.Context, t *models.Trip) (string, error)
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	GetByRideID(ctx context.Context, rideID string) (*models.Trip, error)
	Close(ctx context.Context, id string, fare float64, endedAt time.Time) (bool, error)
	SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (bool, error)
}

// UserStore holds the minimal identity the core needs: id, name, role.
type UserStore interface {
	Create(ctx context.Context, u *models.User) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// NewID returns an opaque random record identifier.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
