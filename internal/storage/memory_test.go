package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

func pendingRide(t *testing.T, s *MemoryRideStore) string {
	t.Helper()
	id, err := s.Create(context.Background(), &models.RideRequest{
		RiderID:     "r1",
		Pickup:      "1.29,36.82",
		Destination: "1.31,36.90",
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func TestAcceptPendingExactlyOnce(t *testing.T) {
	s := NewMemoryRideStore()
	id := pendingRide(t, s)
	ctx := context.Background()

	const drivers = 16
	var wg sync.WaitGroup
	wins := make(chan string, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			driverID := "d" + string(rune('a'+n))
			ok, err := s.AcceptPending(ctx, id, driverID, 12345, nil, time.Now())
			if err != nil {
				t.Errorf("accept: %v", err)
				return
			}
			if ok {
				wins <- driverID
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	r, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Status != models.StatusAccepted || r.DriverID == nil || *r.DriverID != winners[0] {
		t.Fatalf("stored ride inconsistent: %+v", r)
	}
	if r.MatchCode == nil || r.AcceptedAt == nil {
		t.Fatalf("accept fields not set together: %+v", r)
	}
}

func TestAcceptPendingMissingRide(t *testing.T) {
	s := NewMemoryRideStore()
	if _, err := s.AcceptPending(context.Background(), "nope", "d1", 12345, nil, time.Now()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionForwardOnly(t *testing.T) {
	s := NewMemoryRideStore()
	id := pendingRide(t, s)
	ctx := context.Background()

	if ok, _ := s.AcceptPending(ctx, id, "d1", 22222, nil, time.Now()); !ok {
		t.Fatal("accept failed")
	}
	// accepted ride cannot be re-accepted
	if ok, _ := s.AcceptPending(ctx, id, "d2", 33333, nil, time.Now()); ok {
		t.Fatal("second accept succeeded")
	}
	// conditional write keyed on a stale prior status must not apply
	if ok, _ := s.Transition(ctx, id, models.StatusPending, models.StatusAccepted); ok {
		t.Fatal("transition from stale status succeeded")
	}
	if ok, _ := s.Transition(ctx, id, models.StatusAccepted, models.StatusInProgress); !ok {
		t.Fatal("legal forward transition refused")
	}
}

func TestListPendingSortedAndFiltered(t *testing.T) {
	s := NewMemoryRideStore()
	ctx := context.Background()
	first := pendingRide(t, s)
	time.Sleep(time.Millisecond)
	second := pendingRide(t, s)
	if ok, _ := s.AcceptPending(ctx, first, "d1", 44444, nil, time.Now()); !ok {
		t.Fatal("accept failed")
	}
	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestDriverUpsertOverwrites(t *testing.T) {
	s := NewMemoryDriverStore()
	ctx := context.Background()
	if err := s.Upsert(ctx, models.Driver{UserID: "u1", Available: true, Location: "1.30,36.83"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, models.Driver{UserID: "u1", Available: false, VehicleDetails: "blue sedan"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	d, err := s.GetByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Available || d.VehicleDetails != "blue sedan" {
		t.Fatalf("upsert did not overwrite: %+v", d)
	}
	avail, _ := s.ListAvailable(ctx)
	if len(avail) != 0 {
		t.Fatalf("expected no available drivers, got %+v", avail)
	}
}

func TestTripCreateUniquePerRide(t *testing.T) {
	s := NewMemoryTripStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, &models.Trip{RideID: "ride1", StartTime: time.Now(), PaymentStatus: models.PaymentUnpaid}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, &models.Trip{RideID: "ride1", StartTime: time.Now(), PaymentStatus: models.PaymentUnpaid}); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
