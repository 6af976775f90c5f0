package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/example/ride-hailing/internal/models"
)

// OpenPostgres opens and pings a database handle shared by the Postgres
// store implementations.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

type PostgresRideStore struct {
	db *sql.DB
}

func NewPostgresRideStore(db *sql.DB) *PostgresRideStore { return &PostgresRideStore{db: db} }

func (p *PostgresRideStore) Create(ctx context.Context, r *models.RideRequest) (string, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rides(id, rider_id, pickup, destination, status, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		r.ID, r.RiderID, r.Pickup, r.Destination, r.Status, r.CreatedAt)
	return r.ID, err
}

const rideColumns = `id, rider_id, pickup, destination, status, driver_id, match_code, eta, accepted_at, created_at`

func (p *PostgresRideStore) GetByID(ctx context.Context, id string) (*models.RideRequest, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	return scanRide(row)
}

func (p *PostgresRideStore) ListPending(ctx context.Context) ([]models.RideRequest, error) {
	return p.list(ctx, `SELECT `+rideColumns+` FROM rides WHERE status=$1 ORDER BY created_at`, models.StatusPending)
}

func (p *PostgresRideStore) ListByRider(ctx context.Context, riderID string) ([]models.RideRequest, error) {
	return p.list(ctx, `SELECT `+rideColumns+` FROM rides WHERE rider_id=$1 ORDER BY created_at`, riderID)
}

// AcceptPending is a single conditional UPDATE: the status predicate in the
// WHERE clause is what makes the transition atomic under concurrent drivers.
func (p *PostgresRideStore) AcceptPending(ctx context.Context, id, driverID string, matchCode int, eta *string, acceptedAt time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET status=$2, driver_id=$3, match_code=$4, eta=$5, accepted_at=$6 WHERE id=$1 AND status=$7`,
		id, models.StatusAccepted, driverID, matchCode, eta, acceptedAt, models.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	// distinguish "lost the race" from "no such ride"
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (p *PostgresRideStore) Transition(ctx context.Context, id string, from, to models.RideStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE rides SET status=$3 WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (p *PostgresRideStore) list(ctx context.Context, query string, arg any) ([]models.RideRequest, error) {
	rows, err := p.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.RideRequest, 0)
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.RideRequest, error) {
	var r models.RideRequest
	var driverID, eta sql.NullString
	var matchCode sql.NullInt64
	var acceptedAt sql.NullTime
	err := row.Scan(&r.ID, &r.RiderID, &r.Pickup, &r.Destination, &r.Status, &driverID, &matchCode, &eta, &acceptedAt, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		r.DriverID = &driverID.String
	}
	if matchCode.Valid {
		code := int(matchCode.Int64)
		r.MatchCode = &code
	}
	if eta.Valid {
		r.ETA = &eta.String
	}
	if acceptedAt.Valid {
		r.AcceptedAt = &acceptedAt.Time
	}
	return &r, nil
}

type PostgresDriverStore struct {
	db *sql.DB
}

func NewPostgresDriverStore(db *sql.DB) *PostgresDriverStore { return &PostgresDriverStore{db: db} }

func (p *PostgresDriverStore) Upsert(ctx context.Context, d models.Driver) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO drivers(user_id, available, location, vehicle_details, updated_at) VALUES($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE SET available=EXCLUDED.available, location=EXCLUDED.location, vehicle_details=EXCLUDED.vehicle_details, updated_at=EXCLUDED.updated_at`,
		d.UserID, d.Available, d.Location, d.VehicleDetails, time.Now())
	return err
}

func (p *PostgresDriverStore) ListAvailable(ctx context.Context) ([]models.Driver, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT user_id, available, location, vehicle_details, updated_at FROM drivers WHERE available ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Driver, 0)
	for rows.Next() {
		var d models.Driver
		if err := rows.Scan(&d.UserID, &d.Available, &d.Location, &d.VehicleDetails, &d.Updated); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresDriverStore) GetByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	var d models.Driver
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id, available, location, vehicle_details, updated_at FROM drivers WHERE user_id=$1`, userID).
		Scan(&d.UserID, &d.Available, &d.Location, &d.VehicleDetails, &d.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type PostgresTripStore struct {
	db *sql.DB
}

func NewPostgresTripStore(db *sql.DB) *PostgresTripStore { return &PostgresTripStore{db: db} }

// Create relies on the unique index on trips.ride_id to enforce at most one
// trip per ride even under concurrent openers.
func (p *PostgresTripStore) Create(ctx context.Context, t *models.Trip) (string, error) {
	if t.ID == "" {
		t.ID = NewID()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO trips(id, ride_id, start_time, fare, payment_status) VALUES($1,$2,$3,$4,$5)`,
		t.ID, t.RideID, t.StartTime, t.Fare, t.PaymentStatus)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return "", ErrConflict
	}
	return t.ID, err
}

func (p *PostgresTripStore) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	return scanTrip(p.db.QueryRowContext(ctx,
		`SELECT id, ride_id, start_time, end_time, fare, payment_status FROM trips WHERE id=$1`, id))
}

func (p *PostgresTripStore) GetByRideID(ctx context.Context, rideID string) (*models.Trip, error) {
	return scanTrip(p.db.QueryRowContext(ctx,
		`SELECT id, ride_id, start_time, end_time, fare, payment_status FROM trips WHERE ride_id=$1`, rideID))
}

func (p *PostgresTripStore) Close(ctx context.Context, id string, fare float64, endedAt time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE trips SET fare=$2, end_time=$3 WHERE id=$1`, id, fare, endedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (p *PostgresTripStore) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE trips SET payment_status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	var end sql.NullTime
	err := row.Scan(&t.ID, &t.RideID, &t.StartTime, &end, &t.Fare, &t.PaymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t.EndTime = &end.Time
	}
	return &t, nil
}

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore { return &PostgresUserStore{db: db} }

func (p *PostgresUserStore) Create(ctx context.Context, u *models.User) (string, error) {
	if u.ID == "" {
		u.ID = NewID()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO users(id, name, role) VALUES($1,$2,$3)`, u.ID, u.Name, u.Role)
	return u.ID, err
}

func (p *PostgresUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx, `SELECT id, name, role FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
