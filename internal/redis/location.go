package redis

import (
	"context"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/domain"
)

const (
	driverLocationPrefix = "driver:location:"
	driverIndexKey       = "drivers:known"
)

// LocationStore keeps each driver's last known position and live-connection
// handle in Redis. It is written by the location-update channel and the
// websocket gateway, and read by driver discovery.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's position.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	key := driverLocationPrefix + driverID

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"lat", strconv.FormatFloat(lat, 'f', -1, 64),
		"lng", strconv.FormatFloat(lng, 'f', -1, 64),
	)
	pipe.SAdd(ctx, driverIndexKey, driverID)
	_, err := pipe.Exec(ctx)
	return err
}

// SetConnection records the driver's live-connection handle.
func (s *LocationStore) SetConnection(ctx context.Context, driverID, connID string) error {
	key := driverLocationPrefix + driverID

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "conn", connID)
	pipe.SAdd(ctx, driverIndexKey, driverID)
	_, err := pipe.Exec(ctx)
	return err
}

// ClearConnection removes the driver's live-connection handle.
func (s *LocationStore) ClearConnection(ctx context.Context, driverID string) error {
	return s.client.HDel(ctx, driverLocationPrefix+driverID, "conn").Err()
}

// All returns every known driver location. Drivers without stored
// coordinates carry NaN positions; callers filter on finiteness.
func (s *LocationStore) All(ctx context.Context) ([]domain.DriverLocation, error) {
	ids, err := s.client.SMembers(ctx, driverIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.HGetAll(ctx, driverLocationPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	locations := make([]domain.DriverLocation, 0, len(ids))
	for _, id := range ids {
		fields, err := cmds[id].Result()
		if err != nil || len(fields) == 0 {
			continue
		}

		loc := domain.DriverLocation{DriverID: id, ConnID: fields["conn"]}

		lat, errLat := strconv.ParseFloat(fields["lat"], 64)
		lng, errLng := strconv.ParseFloat(fields["lng"], 64)
		if errLat == nil && errLng == nil {
			loc.Lat = lat
			loc.Lng = lng
		} else {
			// Position unknown: discovery skips it via the finiteness
			// filter, but the connection handle still counts for the
			// broadcast fallback.
			loc.Lat = math.NaN()
			loc.Lng = math.NaN()
		}

		locations = append(locations, loc)
	}

	return locations, nil
}

// ConnectedHandles returns the distinct live-connection handles of every
// driver with a connection, regardless of position.
func (s *LocationStore) ConnectedHandles(ctx context.Context) ([]string, error) {
	locations, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var handles []string
	for _, loc := range locations {
		if loc.ConnID == "" {
			continue
		}
		if _, ok := seen[loc.ConnID]; ok {
			continue
		}
		seen[loc.ConnID] = struct{}{}
		handles = append(handles, loc.ConnID)
	}

	return handles, nil
}

// Remove deletes a driver's location record entirely.
func (s *LocationStore) Remove(ctx context.Context, driverID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, driverLocationPrefix+driverID)
	pipe.SRem(ctx, driverIndexKey, driverID)
	_, err := pipe.Exec(ctx)
	return err
}
