package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/service"
)

func newLifecycleFixture() (*service.RideService, *MockRideRepository, *MockDriverRepository) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()

	resolver := &StubGeoResolver{
		Estimate: geo.DistanceDuration{DistanceMeters: 5000, DurationSeconds: 720},
	}

	svc := service.NewRideService(rideRepo, driverRepo, resolver, nil)
	return svc, rideRepo, driverRepo
}

func TestCreateRideComputesFareAndOTP(t *testing.T) {
	svc, rideRepo, _ := newLifecycleFixture()

	ride, err := svc.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "Central Station",
		Destination:  "Airport",
		VehicleClass: "COMPACT",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 5 km and 12 min on the COMPACT tariff: 30 + 5*10 + 12*2 = 104.
	if ride.Fare != 104 {
		t.Errorf("expected fare 104, got %d", ride.Fare)
	}
	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected PENDING, got %s", ride.Status)
	}
	if len(ride.OTP) != 6 {
		t.Errorf("expected 6-digit OTP, got %q", ride.OTP)
	}
	if rideRepo.GetRide(ride.ID) == nil {
		t.Error("ride was not persisted")
	}
}

func TestCreateRideValidation(t *testing.T) {
	svc, _, _ := newLifecycleFixture()

	cases := []struct {
		name string
		req  service.CreateRideRequest
		want error
	}{
		{
			name: "missing pickup",
			req:  service.CreateRideRequest{RiderID: "r", Pickup: "  ", Destination: "d", VehicleClass: "ECONOMY"},
			want: service.ErrMissingFields,
		},
		{
			name: "missing rider",
			req:  service.CreateRideRequest{Pickup: "p", Destination: "d", VehicleClass: "ECONOMY"},
			want: service.ErrMissingFields,
		},
		{
			name: "unknown vehicle class",
			req:  service.CreateRideRequest{RiderID: "r", Pickup: "p", Destination: "d", VehicleClass: "LIMO"},
			want: service.ErrInvalidVehicleClass,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateRideGeoFailureDoesNotPersist(t *testing.T) {
	rideRepo := NewMockRideRepository()
	resolver := &StubGeoResolver{EstimateError: geo.ErrGeocodeUnavailable}
	svc := service.NewRideService(rideRepo, NewMockDriverRepository(), resolver, nil)

	_, err := svc.Create(context.Background(), service.CreateRideRequest{
		RiderID: "rider-1", Pickup: "a", Destination: "b", VehicleClass: "ECONOMY",
	})
	if !errors.Is(err, service.ErrFareUnavailable) {
		t.Fatalf("expected ErrFareUnavailable, got %v", err)
	}
	if atomic.LoadInt32(&rideRepo.CreateCallCount) != 0 {
		t.Error("no ride must be persisted when the fare cannot be computed")
	}
}

func TestFullLifecycle(t *testing.T) {
	svc, rideRepo, driverRepo := newLifecycleFixture()

	rideRepo.AddUser(&domain.User{ID: "rider-1", Name: "Asha"})
	driver := &domain.Driver{ID: "driver-1", Name: "Ravi"}
	driverRepo.AddDriver(driver)
	rideRepo.AddDriver(driver)

	ride, err := svc.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "Central Station",
		Destination:  "Airport",
		VehicleClass: "COMPACT",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	confirmed, err := svc.Confirm(context.Background(), ride.ID, "driver-1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != domain.RideStatusAccepted || confirmed.DriverID != "driver-1" {
		t.Fatalf("unexpected state after confirm: %s driver=%s", confirmed.Status, confirmed.DriverID)
	}
	if confirmed.Rider == nil || confirmed.Rider.Name != "Asha" {
		t.Error("confirm should return the ride with the rider hydrated")
	}

	// Wrong code first.
	wrongOTP := "000000"
	if wrongOTP == ride.OTP {
		wrongOTP = "000001"
	}
	if _, err := svc.Start(context.Background(), ride.ID, wrongOTP, "driver-1"); !errors.Is(err, service.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	started, err := svc.Start(context.Background(), ride.ID, ride.OTP, "driver-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != domain.RideStatusOngoing {
		t.Fatalf("expected ONGOING, got %s", started.Status)
	}

	ended, err := svc.End(context.Background(), ride.ID, "driver-1")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != domain.RideStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", ended.Status)
	}

	got := driverRepo.GetDriver("driver-1")
	if got.CompletedTrips != 1 {
		t.Errorf("expected 1 completed trip, got %d", got.CompletedTrips)
	}
	if got.Earnings != 104 {
		t.Errorf("expected earnings 104, got %d", got.Earnings)
	}
}

func TestStartRequiresAcceptedState(t *testing.T) {
	svc, rideRepo, _ := newLifecycleFixture()

	rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", OTP: "123456",
		Status: domain.RideStatusPending, CreatedAt: time.Now(),
	})

	if _, err := svc.Start(context.Background(), "ride-1", "123456", "driver-1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	svc, rideRepo, driverRepo := newLifecycleFixture()

	driverRepo.AddDriver(&domain.Driver{ID: "driver-1"})
	rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1",
		Fare: 104, Status: domain.RideStatusOngoing, CreatedAt: time.Now(),
	})

	first, err := svc.End(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("first End: %v", err)
	}
	second, err := svc.End(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("second End: %v", err)
	}

	if first.Status != domain.RideStatusCompleted || second.Status != domain.RideStatusCompleted {
		t.Error("both calls must observe a COMPLETED ride")
	}

	// Stats credited exactly once.
	if got := atomic.LoadInt32(&driverRepo.IncrementStatsCallCount); got != 1 {
		t.Errorf("expected 1 stats credit, got %d", got)
	}
	driver := driverRepo.GetDriver("driver-1")
	if driver.CompletedTrips != 1 || driver.Earnings != 104 {
		t.Errorf("driver stats credited more than once: trips=%d earnings=%d", driver.CompletedTrips, driver.Earnings)
	}
}

func TestEndConcurrentCompletionsCreditOnce(t *testing.T) {
	svc, rideRepo, driverRepo := newLifecycleFixture()

	driverRepo.AddDriver(&domain.Driver{ID: "driver-1"})
	rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1",
		Fare: 104, Status: domain.RideStatusOngoing, CreatedAt: time.Now(),
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.End(context.Background(), "ride-1", "driver-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent End returned error: %v", err)
		}
	}

	driver := driverRepo.GetDriver("driver-1")
	if driver.CompletedTrips != 1 || driver.Earnings != 104 {
		t.Errorf("expected exactly one credit, got trips=%d earnings=%d", driver.CompletedTrips, driver.Earnings)
	}
}

func TestEndRejectsWrongDriver(t *testing.T) {
	svc, rideRepo, _ := newLifecycleFixture()

	rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1",
		Status: domain.RideStatusOngoing, CreatedAt: time.Now(),
	})

	if _, err := svc.End(context.Background(), "ride-1", "driver-2"); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound for a foreign driver, got %v", err)
	}
}

func TestConfirmUnknownRide(t *testing.T) {
	svc, _, _ := newLifecycleFixture()

	if _, err := svc.Confirm(context.Background(), "missing", "driver-1"); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}
