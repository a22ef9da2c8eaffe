package tests

import (
	"context"
	"math"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/service"
)

func TestFindWithinRadius(t *testing.T) {
	store := NewMockLocationStore()
	// Bengaluru city center.
	center := geo.Coordinate{Lat: 12.9716, Lng: 77.5946}

	// ~1.2 km away.
	store.SetLocation(domain.DriverLocation{DriverID: "near", Lat: 12.9816, Lng: 77.5986})
	// ~15 km away.
	store.SetLocation(domain.DriverLocation{DriverID: "far", Lat: 13.1000, Lng: 77.5946})
	// Connected but position unknown.
	store.SetLocation(domain.DriverLocation{DriverID: "unknown", Lat: math.NaN(), Lng: math.NaN(), ConnID: "conn-u"})

	svc := service.NewDiscoveryService(store)

	nearby, err := svc.FindWithinRadius(context.Background(), center, 2.0)
	if err != nil {
		t.Fatalf("FindWithinRadius returned error: %v", err)
	}

	if len(nearby) != 1 || nearby[0].DriverID != "near" {
		t.Errorf("expected only the nearby driver, got %+v", nearby)
	}
}

func TestFindWithinRadiusNonFiniteCenter(t *testing.T) {
	store := NewMockLocationStore()
	store.SetLocation(domain.DriverLocation{DriverID: "d1", Lat: 1, Lng: 1})

	svc := service.NewDiscoveryService(store)

	nearby, err := svc.FindWithinRadius(context.Background(), geo.Coordinate{Lat: math.NaN(), Lng: 0}, 2.0)
	if err != nil {
		t.Fatalf("expected soft failure, got error %v", err)
	}
	if len(nearby) != 0 {
		t.Errorf("expected no drivers for a non-finite center, got %+v", nearby)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Bengaluru to Chennai is roughly 290 km great-circle.
	blr := geo.Coordinate{Lat: 12.9716, Lng: 77.5946}
	maa := geo.Coordinate{Lat: 13.0827, Lng: 80.2707}

	km := geo.HaversineKm(blr, maa)
	if km < 280 || km > 300 {
		t.Errorf("unexpected distance %.1f km", km)
	}
}
