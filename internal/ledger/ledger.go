// Package ledger derives billable trip records from ride state transitions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// PaymentClient holds and captures fares. Satisfied by StripeClient.
type PaymentClient interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

// Ledger owns Trip records, keyed 1:1 off ride identity.
type Ledger struct {
	Trips    storage.TripStore
	Payments PaymentClient // optional; CollectFare fails without it
	Currency string        // ISO code for fare capture, defaults to "kes"
}

// OpenTrip creates the trip for a ride, or returns the existing one: at most
// one trip per ride. The lookup-before-create keeps the common path cheap;
// the store's uniqueness constraint settles concurrent openers.
func (l *Ledger) OpenTrip(ctx context.Context, rideID string) (*models.Trip, error) {
	if t, err := l.Trips.GetByRideID(ctx, rideID); err == nil {
		return t, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("open trip: look up ride %s: %w", rideID, err)
	}
	t := &models.Trip{
		RideID:        rideID,
		StartTime:     time.Now().UTC(),
		Fare:          0,
		PaymentStatus: models.PaymentUnpaid,
	}
	_, err := l.Trips.Create(ctx, t)
	if errors.Is(err, storage.ErrConflict) {
		// lost the open race; the other opener's trip is the trip
		return l.Trips.GetByRideID(ctx, rideID)
	}
	if err != nil {
		return nil, fmt.Errorf("open trip: persist for ride %s: %w", rideID, err)
	}
	observability.TripsOpened.Inc()
	return t, nil
}

// CloseTrip sets the end time and fare. Payment status is untouched.
func (l *Ledger) CloseTrip(ctx context.Context, tripID string, fare float64, endedAt time.Time) (*models.Trip, error) {
	if fare < 0 {
		return nil, fmt.Errorf("close trip %s: negative fare %.2f", tripID, fare)
	}
	ok, err := l.Trips.Close(ctx, tripID, fare, endedAt)
	if err != nil {
		return nil, fmt.Errorf("close trip %s: %w", tripID, err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	return l.Trips.GetByID(ctx, tripID)
}

// CloseTripForRide closes the trip referenced by rideID.
func (l *Ledger) CloseTripForRide(ctx context.Context, rideID string, fare float64, endedAt time.Time) (*models.Trip, error) {
	t, err := l.Trips.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("close trip for ride %s: %w", rideID, err)
	}
	return l.CloseTrip(ctx, t.ID, fare, endedAt)
}

// GetTrip fetches a trip by id.
func (l *Ledger) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	return l.Trips.GetByID(ctx, tripID)
}

// CollectFare holds and captures the trip's fare, then marks the trip paid.
// A failed capture releases the hold and leaves the trip unpaid.
func (l *Ledger) CollectFare(ctx context.Context, tripID, customerID string) (*models.Trip, error) {
	t, err := l.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("collect fare: look up trip %s: %w", tripID, err)
	}
	if t.PaymentStatus == models.PaymentPaid {
		return t, nil
	}
	if t.EndTime == nil {
		return nil, fmt.Errorf("collect fare: trip %s not closed", tripID)
	}
	if l.Payments == nil {
		return nil, fmt.Errorf("collect fare: no payment client configured")
	}
	currency := l.Currency
	if currency == "" {
		currency = "kes"
	}
	cents := int64(t.Fare * 100)
	intentID, err := l.Payments.Hold(ctx, cents, currency, customerID)
	if err != nil {
		return nil, fmt.Errorf("collect fare: hold for trip %s: %w", tripID, err)
	}
	if err := l.Payments.Capture(ctx, intentID); err != nil {
		_ = l.Payments.Cancel(ctx, intentID)
		return nil, fmt.Errorf("collect fare: capture for trip %s: %w", tripID, err)
	}
	if _, err := l.Trips.SetPaymentStatus(ctx, tripID, models.PaymentPaid); err != nil {
		return nil, fmt.Errorf("collect fare: mark trip %s paid: %w", tripID, err)
	}
	return l.Trips.GetByID(ctx, tripID)
}
