package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/ride-hailing/internal/ledger"
	"github.com/example/ride-hailing/internal/matching"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryUserStore) {
	t.Helper()
	users := storage.NewMemoryUserStore()
	led := &ledger.Ledger{Trips: storage.NewMemoryTripStore()}
	core := &matching.Service{
		Rides:   storage.NewMemoryRideStore(),
		Drivers: storage.NewMemoryDriverStore(),
		Users:   users,
		Ledger:  led,
	}
	return NewServer(Options{Core: core, Ledger: led, Users: users}), users
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestRideFlowOverHTTP(t *testing.T) {
	s, users := newTestServer(t)
	rider := &models.User{Name: "wanjiku", Role: models.RoleRider}
	driver := &models.User{Name: "otieno", Role: models.RoleDriver}
	for _, u := range []*models.User{rider, driver} {
		if _, err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := doJSON(t, s, "POST", "/api/v1/drivers/availability", map[string]any{
		"user_id": driver.ID, "available": true, "location": "1.30,36.83", "vehicle_details": "white corolla",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("availability: %d %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, "POST", "/api/v1/rides", map[string]string{
		"rider_id": rider.ID, "pickup": "1.29,36.82|Nairobi CBD", "destination": "1.31,36.90|Eastlands",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body)
	}
	var ride models.RideRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &ride); err != nil {
		t.Fatalf("decode ride: %v", err)
	}

	rec = doJSON(t, s, "GET", "/api/v1/rides/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending: %d", rec.Code)
	}

	rec = doJSON(t, s, "POST", fmt.Sprintf("/api/v1/rides/%s/accept", ride.ID), map[string]string{"driver_id": driver.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", rec.Code, rec.Body)
	}
	var result models.AcceptResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.MatchCode < 10000 || result.MatchCode > 99999 {
		t.Fatalf("match code out of range: %d", result.MatchCode)
	}
	if result.ETA == nil {
		t.Fatal("eta missing despite driver location")
	}

	// a second accept loses
	rec = doJSON(t, s, "POST", fmt.Sprintf("/api/v1/rides/%s/accept", ride.ID), map[string]string{"driver_id": driver.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second accept: %d", rec.Code)
	}

	rec = doJSON(t, s, "GET", fmt.Sprintf("/api/v1/rides/%s/status", ride.ID), nil)
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["status"] != "accepted" {
		t.Fatalf("status = %q", status["status"])
	}

	rec = doJSON(t, s, "POST", fmt.Sprintf("/api/v1/rides/%s/start", ride.ID), map[string]string{"driver_id": driver.ID})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, s, "POST", fmt.Sprintf("/api/v1/rides/%s/complete", ride.ID), map[string]any{"driver_id": driver.ID, "fare": 450})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, "GET", fmt.Sprintf("/api/v1/riders/%s/rides", rider.ID), nil)
	var rides []models.RideRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &rides); err != nil {
		t.Fatalf("decode rides: %v", err)
	}
	if len(rides) != 1 || rides[0].Status != models.StatusCompleted {
		t.Fatalf("rider rides: %+v", rides)
	}
}

func TestErrorMapping(t *testing.T) {
	s, users := newTestServer(t)
	customer := &models.User{Name: "akinyi", Role: models.RoleCustomer}
	if _, err := users.Create(context.Background(), customer); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doJSON(t, s, "GET", "/api/v1/rides/nope/status", nil)
	var status map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if rec.Code != http.StatusOK || status["status"] != "not found" {
		t.Fatalf("status for unknown ride: %d %q", rec.Code, status["status"])
	}

	// accepting a missing ride as a driver-less user: role rejected first
	rec = doJSON(t, s, "POST", "/api/v1/rides/nope/accept", map[string]string{"driver_id": customer.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-driver accept: %d", rec.Code)
	}

	rec = doJSON(t, s, "GET", "/api/v1/trips/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing trip: %d", rec.Code)
	}

	rec = doJSON(t, s, "POST", "/api/v1/users", map[string]string{"name": "x", "role": "admin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad role: %d", rec.Code)
	}
}
