package matching

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// Notifier pushes an accept notice to the rider's live session, best effort.
type Notifier interface {
	NotifyRideAccepted(riderID string, result models.AcceptResult) error
}

// EventPublisher emits ride lifecycle events, best effort.
type EventPublisher interface {
	PublishRideEvent(ctx context.Context, e models.RideEvent) error
}

// TripLedger is the slice of the ledger the core drives on progress edges.
type TripLedger interface {
	OpenTrip(ctx context.Context, rideID string) (*models.Trip, error)
	CloseTripForRide(ctx context.Context, rideID string, fare float64, endedAt time.Time) (*models.Trip, error)
}

// Service orchestrates ride submission, acceptance, and progress. All state
// lives in the injected stores; the service itself holds no ride state, so
// concurrent handler invocations share nothing but the store's atomic
// conditional updates.
type Service struct {
	Rides    storage.RideStore
	Drivers  storage.DriverStore
	Users    storage.UserStore
	Ledger   TripLedger     // optional
	Notify   Notifier       // optional
	Events   EventPublisher // optional
	SpeedKmh float64        // assumed driver speed for ETA, defaults to 40
}

func (s *Service) speed() float64 {
	if s.SpeedKmh <= 0 {
		return 40
	}
	return s.SpeedKmh
}

// SubmitRequest creates a pending ride for the rider. Customers, riders and
// drivers may all submit (a driver can ride too). There is no uniqueness
// check across a rider's open requests; duplicate submissions create
// duplicate rides.
func (s *Service) SubmitRequest(ctx context.Context, riderID, pickup, destination string) (*models.RideRequest, error) {
	u, err := s.Users.GetByID(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("submit: look up rider %s: %w", riderID, err)
	}
	if !u.Role.Valid() {
		return nil, ErrInvalidRole
	}
	r := &models.RideRequest{
		RiderID:     riderID,
		Pickup:      pickup,
		Destination: destination,
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.Rides.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("submit: persist ride: %w", err)
	}
	observability.RidesSubmitted.Inc()
	s.publish(ctx, "submitted", r.ID, r.RiderID, "")
	return r, nil
}

// AcceptRide transitions the ride from pending to accepted exactly once.
// Match code, ETA, driver id and timestamp are committed in a single
// conditional store update; when the ride has already left pending the
// caller gets ErrAlreadyTaken and nothing is written.
func (s *Service) AcceptRide(ctx context.Context, driverUserID, rideID string) (*models.AcceptResult, error) {
	start := time.Now()
	defer func() { observability.AcceptLatency.Observe(time.Since(start).Seconds()) }()

	if err := s.requireDriver(ctx, driverUserID); err != nil {
		return nil, err
	}
	ride, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("accept: look up ride %s: %w", rideID, err)
	}

	// ETA is advisory: computed only when the driver has a recorded
	// location, left nil otherwise. Unparseable coordinates degrade to the
	// fallback string inside EstimateETA.
	var eta *string
	d, err := s.Drivers.GetByUserID(ctx, driverUserID)
	switch {
	case err == nil && d.Location != "":
		v := geo.EstimateETA(ride.Pickup, d.Location, s.speed())
		eta = &v
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("accept: look up driver %s: %w", driverUserID, err)
	}

	code := newMatchCode()
	acceptedAt := time.Now().UTC()
	ok, err := s.Rides.AcceptPending(ctx, rideID, driverUserID, code, eta, acceptedAt)
	if err != nil {
		return nil, fmt.Errorf("accept: commit ride %s: %w", rideID, err)
	}
	if !ok {
		observability.AcceptConflicts.Inc()
		return nil, ErrAlreadyTaken
	}
	observability.RidesAccepted.Inc()

	result := models.AcceptResult{RideID: rideID, DriverID: driverUserID, MatchCode: code, ETA: eta}
	if s.Notify != nil {
		_ = s.Notify.NotifyRideAccepted(ride.RiderID, result)
	}
	s.publish(ctx, "accepted", rideID, ride.RiderID, driverUserID)
	return &result, nil
}

// StartRide moves an accepted ride to in_progress and opens its trip.
func (s *Service) StartRide(ctx context.Context, driverUserID, rideID string) error {
	ride, err := s.requireAssignedDriver(ctx, driverUserID, rideID)
	if err != nil {
		return err
	}
	ok, err := s.Rides.Transition(ctx, rideID, models.StatusAccepted, models.StatusInProgress)
	if err != nil {
		return fmt.Errorf("start: transition ride %s: %w", rideID, err)
	}
	if !ok {
		return ErrInvalidTransition
	}
	if s.Ledger != nil {
		if _, err := s.Ledger.OpenTrip(ctx, rideID); err != nil {
			return fmt.Errorf("start: open trip for ride %s: %w", rideID, err)
		}
	}
	s.publish(ctx, "started", rideID, ride.RiderID, driverUserID)
	return nil
}

// CompleteRide moves an in_progress ride to completed and closes its trip
// with the given fare.
func (s *Service) CompleteRide(ctx context.Context, driverUserID, rideID string, fare float64) error {
	ride, err := s.requireAssignedDriver(ctx, driverUserID, rideID)
	if err != nil {
		return err
	}
	ok, err := s.Rides.Transition(ctx, rideID, models.StatusInProgress, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("complete: transition ride %s: %w", rideID, err)
	}
	if !ok {
		return ErrInvalidTransition
	}
	if s.Ledger != nil {
		if _, err := s.Ledger.CloseTripForRide(ctx, rideID, fare, time.Now().UTC()); err != nil {
			return fmt.Errorf("complete: close trip for ride %s: %w", rideID, err)
		}
	}
	s.publish(ctx, "completed", rideID, ride.RiderID, driverUserID)
	return nil
}

func (s *Service) ListPendingRides(ctx context.Context) ([]models.RideRequest, error) {
	return s.Rides.ListPending(ctx)
}

func (s *Service) ListRidesForRider(ctx context.Context, riderID string) ([]models.RideRequest, error) {
	return s.Rides.ListByRider(ctx, riderID)
}

func (s *Service) ListAvailableDrivers(ctx context.Context) ([]models.Driver, error) {
	return s.Drivers.ListAvailable(ctx)
}

// RideStatus returns the current status string, or "not found" for an
// unknown id. Store failures still propagate as errors.
func (s *Service) RideStatus(ctx context.Context, rideID string) (string, error) {
	r, err := s.Rides.GetByID(ctx, rideID)
	if errors.Is(err, storage.ErrNotFound) {
		return "not found", nil
	}
	if err != nil {
		return "", fmt.Errorf("status: look up ride %s: %w", rideID, err)
	}
	return string(r.Status), nil
}

// UpdateDriverAvailability overwrites the single availability record for the
// driver. Location is "lat,lng|label" or empty when unknown.
func (s *Service) UpdateDriverAvailability(ctx context.Context, userID string, available bool, location, vehicleDetails string) error {
	if err := s.requireDriver(ctx, userID); err != nil {
		return err
	}
	d := models.Driver{UserID: userID, Available: available, Location: location, VehicleDetails: vehicleDetails}
	if err := s.Drivers.Upsert(ctx, d); err != nil {
		return fmt.Errorf("availability: upsert driver %s: %w", userID, err)
	}
	return nil
}

func (s *Service) requireDriver(ctx context.Context, userID string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", userID, err)
	}
	if u.Role != models.RoleDriver {
		return ErrInvalidRole
	}
	return nil
}

func (s *Service) requireAssignedDriver(ctx context.Context, driverUserID, rideID string) (*models.RideRequest, error) {
	if err := s.requireDriver(ctx, driverUserID); err != nil {
		return nil, err
	}
	ride, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("look up ride %s: %w", rideID, err)
	}
	if ride.DriverID == nil || *ride.DriverID != driverUserID {
		return nil, ErrInvalidRole
	}
	return ride, nil
}

func (s *Service) publish(ctx context.Context, typ, rideID, riderID, driverID string) {
	if s.Events == nil {
		return
	}
	_ = s.Events.PublishRideEvent(ctx, models.RideEvent{
		Type: typ, RideID: rideID, RiderID: riderID, DriverID: driverID, At: time.Now().UTC(),
	})
}

// newMatchCode returns a uniform random 5-digit code in [10000, 99999].
// Advisory pickup confirmation only, not a security token.
func newMatchCode() int {
	return 10000 + rand.Intn(90000)
}
