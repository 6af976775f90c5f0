package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/ride-hailing/internal/matching"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string      `json:"name"`
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Role.Valid() {
		http.Error(w, "role must be customer, rider or driver", http.StatusBadRequest)
		return
	}
	u := &models.User{Name: req.Name, Role: req.Role}
	if _, err := s.users.Create(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleSubmitRide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiderID     string `json:"rider_id"`
		Pickup      string `json:"pickup"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RiderID == "" || req.Pickup == "" || req.Destination == "" {
		http.Error(w, "rider_id, pickup and destination are required", http.StatusBadRequest)
		return
	}
	ride, err := s.core.SubmitRequest(r.Context(), req.RiderID, req.Pickup, req.Destination)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	rides, err := s.core.ListPendingRides(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleRideStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.core.RideStatus(r.Context(), mux.Vars(r)["ride_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverID string `json:"driver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := s.core.AcceptRide(r.Context(), req.DriverID, mux.Vars(r)["ride_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStartRide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverID string `json:"driver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.core.StartRide(r.Context(), req.DriverID, mux.Vars(r)["ride_id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverID string  `json:"driver_id"`
		Fare     float64 `json:"fare"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.core.CompleteRide(r.Context(), req.DriverID, mux.Vars(r)["ride_id"], req.Fare); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRiderRides(w http.ResponseWriter, r *http.Request) {
	rides, err := s.core.ListRidesForRider(r.Context(), mux.Vars(r)["rider_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleDriverAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string `json:"user_id"`
		Available      bool   `json:"available"`
		Location       string `json:"location"`
		VehicleDetails string `json:"vehicle_details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.core.UpdateDriverAvailability(r.Context(), req.UserID, req.Available, req.Location, req.VehicleDetails); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.availability != nil {
		d := models.Driver{UserID: req.UserID, Available: req.Available, Location: req.Location, VehicleDetails: req.VehicleDetails}
		if err := s.availability.PublishAvailability(r.Context(), d); err != nil {
			s.logger.Warn("availability publish failed", "user_id", req.UserID, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.core.ListAvailableDrivers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.ledger.GetTrip(r.Context(), mux.Vars(r)["trip_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleCollectFare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	trip, err := s.ledger.CollectFare(r.Context(), mux.Vars(r)["trip_id"], req.CustomerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleRiderWS(w http.ResponseWriter, r *http.Request) {
	riderID := mux.Vars(r)["rider_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsReg.Add(riderID, conn)
	conn.SetCloseHandler(func(code int, text string) error {
		s.wsReg.Remove(riderID)
		return nil
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// writeError maps the core's error taxonomy onto HTTP statuses. Anything
// outside the known set is treated as a transient store failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, matching.ErrAlreadyTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already taken"})
	case errors.Is(err, matching.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid transition"})
	case errors.Is(err, matching.ErrInvalidRole):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "role not permitted"})
	default:
		s.logger.Error("internal error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
