// Package httpapi is the collaborator-facing JSON surface over the matching
// core and trip ledger. It carries no presentation concerns: no templates,
// no forms, no sessions.
package httpapi

import (
	"log/slog"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-hailing/internal/events"
	"github.com/example/ride-hailing/internal/ledger"
	"github.com/example/ride-hailing/internal/matching"
	"github.com/example/ride-hailing/internal/notify"
	"github.com/example/ride-hailing/internal/storage"
)

type Server struct {
	core   *matching.Service
	ledger *ledger.Ledger
	users  storage.UserStore
	wsReg  *notify.Registry

	// availability updates are forwarded to Kafka for the Redis index
	// consumer; nil when Kafka is not configured.
	availability *events.Producer

	logger *slog.Logger
	mux    *mux.Router
}

// Options carries the server's collaborators. Core, Ledger and Users are
// required; the rest degrade to local-only behavior when nil.
type Options struct {
	Core         *matching.Service
	Ledger       *ledger.Ledger
	Users        storage.UserStore
	WSRegistry   *notify.Registry
	Availability *events.Producer
	Logger       *slog.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		core:         opts.Core,
		ledger:       opts.Ledger,
		users:        opts.Users,
		wsReg:        opts.WSRegistry,
		availability: opts.Availability,
		logger:       opts.Logger,
		mux:          mux.NewRouter(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.wsReg == nil {
		s.wsReg = notify.NewRegistry()
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users", s.handleRegisterUser).Methods("POST")

	api.HandleFunc("/rides", s.handleSubmitRide).Methods("POST")
	api.HandleFunc("/rides/pending", s.handleListPending).Methods("GET")
	api.HandleFunc("/rides/{ride_id}/status", s.handleRideStatus).Methods("GET")
	api.HandleFunc("/rides/{ride_id}/accept", s.handleAcceptRide).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/start", s.handleStartRide).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/complete", s.handleCompleteRide).Methods("POST")
	api.HandleFunc("/riders/{rider_id}/rides", s.handleRiderRides).Methods("GET")

	api.HandleFunc("/drivers/availability", s.handleDriverAvailability).Methods("POST")
	api.HandleFunc("/drivers/available", s.handleAvailableDrivers).Methods("GET")

	api.HandleFunc("/trips/{trip_id}", s.handleGetTrip).Methods("GET")
	api.HandleFunc("/trips/{trip_id}/collect", s.handleCollectFare).Methods("POST")

	s.mux.HandleFunc("/ws/riders/{rider_id}", s.handleRiderWS)
	s.mux.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}
