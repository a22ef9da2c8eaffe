package service

import (
	"context"
	"math"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/redis"
)

// DiscoveryService finds drivers near a point. It is a linear scan over all
// known driver locations with a great-circle distance check; no spatial
// index. That ceiling is acceptable at the driver counts this system
// targets.
type DiscoveryService struct {
	locations redis.LocationStoreInterface
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(locations redis.LocationStoreInterface) *DiscoveryService {
	return &DiscoveryService{locations: locations}
}

// FindWithinRadius returns the drivers whose haversine distance to center
// is at most radiusKm. Non-finite center or radius yields an empty result
// rather than an error; drivers with unknown or non-finite coordinates are
// excluded.
func (s *DiscoveryService) FindWithinRadius(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]domain.DriverLocation, error) {
	if !center.Finite() || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, nil
	}

	all, err := s.locations.All(ctx)
	if err != nil {
		return nil, err
	}

	var nearby []domain.DriverLocation
	for _, loc := range all {
		point := geo.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
		if !point.Finite() {
			continue
		}
		if geo.HaversineKm(center, point) <= radiusKm {
			nearby = append(nearby, loc)
		}
	}

	return nearby, nil
}
