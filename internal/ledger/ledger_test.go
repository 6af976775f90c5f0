package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

// fakePayments records calls and can fail capture a number of times.
type fakePayments struct {
	failCapture bool
	holds       int
	captures    int
	cancels     int
}

func (f *fakePayments) Hold(ctx context.Context, amount int64, currency, customerID string) (string, error) {
	f.holds++
	return "pi_test", nil
}

func (f *fakePayments) Capture(ctx context.Context, id string) error {
	f.captures++
	if f.failCapture {
		return errors.New("capture declined")
	}
	return nil
}

func (f *fakePayments) Cancel(ctx context.Context, id string) error {
	f.cancels++
	return nil
}

func TestOpenTripIdempotent(t *testing.T) {
	l := &Ledger{Trips: storage.NewMemoryTripStore()}
	ctx := context.Background()

	first, err := l.OpenTrip(ctx, "ride1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if first.PaymentStatus != models.PaymentUnpaid || first.Fare != 0 {
		t.Fatalf("new trip defaults wrong: %+v", first)
	}
	second, err := l.OpenTrip(ctx, "ride1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second open created a new trip: %s vs %s", second.ID, first.ID)
	}
}

func TestCloseTrip(t *testing.T) {
	l := &Ledger{Trips: storage.NewMemoryTripStore()}
	ctx := context.Background()

	trip, _ := l.OpenTrip(ctx, "ride1")
	end := time.Now().UTC()
	closed, err := l.CloseTrip(ctx, trip.ID, 450.50, end)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Fare != 450.50 || closed.EndTime == nil {
		t.Fatalf("close did not apply: %+v", closed)
	}
	if closed.PaymentStatus != models.PaymentUnpaid {
		t.Fatalf("close must not touch payment status: %+v", closed)
	}
}

func TestCloseTripNotFound(t *testing.T) {
	l := &Ledger{Trips: storage.NewMemoryTripStore()}
	if _, err := l.CloseTrip(context.Background(), "missing", 100, time.Now()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCloseTripNegativeFare(t *testing.T) {
	l := &Ledger{Trips: storage.NewMemoryTripStore()}
	trip, _ := l.OpenTrip(context.Background(), "ride1")
	if _, err := l.CloseTrip(context.Background(), trip.ID, -1, time.Now()); err == nil {
		t.Fatal("negative fare accepted")
	}
}

func TestCollectFare(t *testing.T) {
	pay := &fakePayments{}
	l := &Ledger{Trips: storage.NewMemoryTripStore(), Payments: pay}
	ctx := context.Background()

	trip, _ := l.OpenTrip(ctx, "ride1")
	if _, err := l.CollectFare(ctx, trip.ID, "cus_1"); err == nil {
		t.Fatal("collect on an open trip should fail")
	}
	if _, err := l.CloseTrip(ctx, trip.ID, 300, time.Now().UTC()); err != nil {
		t.Fatalf("close: %v", err)
	}
	paid, err := l.CollectFare(ctx, trip.ID, "cus_1")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if paid.PaymentStatus != models.PaymentPaid {
		t.Fatalf("trip not marked paid: %+v", paid)
	}
	if pay.holds != 1 || pay.captures != 1 {
		t.Fatalf("unexpected payment calls: %+v", pay)
	}
	// collecting again is a no-op
	if _, err := l.CollectFare(ctx, trip.ID, "cus_1"); err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if pay.holds != 1 {
		t.Fatalf("second collect re-held funds: %+v", pay)
	}
}

func TestCollectFareCaptureFailureReleasesHold(t *testing.T) {
	pay := &fakePayments{failCapture: true}
	l := &Ledger{Trips: storage.NewMemoryTripStore(), Payments: pay}
	ctx := context.Background()

	trip, _ := l.OpenTrip(ctx, "ride1")
	if _, err := l.CloseTrip(ctx, trip.ID, 300, time.Now().UTC()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := l.CollectFare(ctx, trip.ID, "cus_1"); err == nil {
		t.Fatal("expected capture failure")
	}
	if pay.cancels != 1 {
		t.Fatalf("hold not released: %+v", pay)
	}
	got, _ := l.GetTrip(ctx, trip.ID)
	if got.PaymentStatus != models.PaymentUnpaid {
		t.Fatalf("trip marked paid after failed capture: %+v", got)
	}
}
