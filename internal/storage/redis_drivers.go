package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
)

// RedisDriverStore implements DriverStore on Redis: a GEO set for driver
// positions plus a metadata hash per driver, the same split the location
// consumer writes into. Records whose location does not parse skip the GEO
// set but still keep their metadata.
type RedisDriverStore struct {
	client *redis.Client
	geoKey string
}

func NewRedisDriverStore(addr, password, geoKey string) *RedisDriverStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisDriverStore{client: c, geoKey: geoKey}
}

func (r *RedisDriverStore) Upsert(ctx context.Context, d models.Driver) error {
	if c, err := geo.ParseCoord(d.Location); err == nil {
		if _, err := r.client.GeoAdd(ctx, r.geoKey, &redis.GeoLocation{Longitude: c.Lng, Latitude: c.Lat, Name: d.UserID}).Result(); err != nil {
			return err
		}
	}
	if err := r.client.HSet(ctx, metaKey(d.UserID), map[string]interface{}{
		"available":       strconv.FormatBool(d.Available),
		"location":        d.Location,
		"vehicle_details": d.VehicleDetails,
		"updated":         time.Now().Format(time.RFC3339),
	}).Err(); err != nil {
		return err
	}
	if d.Available {
		return r.client.SAdd(ctx, r.availableKey(), d.UserID).Err()
	}
	return r.client.SRem(ctx, r.availableKey(), d.UserID).Err()
}

func (r *RedisDriverStore) ListAvailable(ctx context.Context) ([]models.Driver, error) {
	ids, err := r.client.SMembers(ctx, r.availableKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Driver, 0, len(ids))
	for _, id := range ids {
		d, err := r.GetByUserID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *RedisDriverStore) GetByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	m, err := r.client.HGetAll(ctx, metaKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	d := models.Driver{
		UserID:         userID,
		Location:       m["location"],
		VehicleDetails: m["vehicle_details"],
	}
	d.Available = m["available"] == "true"
	if ts, err := time.Parse(time.RFC3339, m["updated"]); err == nil {
		d.Updated = ts
	}
	return &d, nil
}

// Ping reports backend reachability, for readiness probes.
func (r *RedisDriverStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisDriverStore) Close() error { return r.client.Close() }

func (r *RedisDriverStore) availableKey() string { return r.geoKey + ":available" }

func metaKey(userID string) string { return "driver:meta:" + userID }
