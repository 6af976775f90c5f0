package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/config"
	"github.com/example/ride-hailing/internal/events"
	"github.com/example/ride-hailing/internal/httpapi"
	"github.com/example/ride-hailing/internal/ledger"
	"github.com/example/ride-hailing/internal/logging"
	"github.com/example/ride-hailing/internal/matching"
	"github.com/example/ride-hailing/internal/notify"
	"github.com/example/ride-hailing/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.ForComponent(logging.NewLogger(cfg.LogLevel), "server")

	var (
		rides   storage.RideStore
		drivers storage.DriverStore
		trips   storage.TripStore
		users   storage.UserStore
	)
	if cfg.PGDSN != "" {
		db, err := storage.OpenPostgres(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.RunMigrations {
			if err := runMigrations(db); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		rides = storage.NewPostgresRideStore(db)
		drivers = storage.NewPostgresDriverStore(db)
		trips = storage.NewPostgresTripStore(db)
		users = storage.NewPostgresUserStore(db)
	} else {
		logger.Warn("PG_DSN not set, using in-memory stores")
		rides = storage.NewMemoryRideStore()
		drivers = storage.NewMemoryDriverStore()
		trips = storage.NewMemoryTripStore()
		users = storage.NewMemoryUserStore()
	}

	// Redis, when configured, replaces the driver store with the GEO-backed
	// index the availability consumer maintains.
	if cfg.RedisAddr != "" {
		drivers = storage.NewRedisDriverStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	}

	led := &ledger.Ledger{Trips: trips, Currency: cfg.FareCurrency}
	if os.Getenv("STRIPE_API_KEY") != "" {
		led.Payments = ledger.NewStripeClient()
	}

	wsReg := notify.NewRegistry()

	var rideEvents, availability *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		rideEvents = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaRideEventsTopic)
		defer rideEvents.Close()
		availability = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaAvailabilityTopic)
		defer availability.Close()
	}

	core := &matching.Service{
		Rides:    rides,
		Drivers:  drivers,
		Users:    users,
		Ledger:   led,
		Notify:   wsReg,
		SpeedKmh: cfg.MatchSpeedKmh,
	}
	if rideEvents != nil {
		core.Events = rideEvents
	}

	api := httpapi.NewServer(httpapi.Options{
		Core:         core,
		Ledger:       led,
		Users:        users,
		WSRegistry:   wsReg,
		Availability: availability,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func runMigrations(db *sql.DB) error {
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_schema.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
