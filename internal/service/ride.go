package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/repository"
)

// GeoResolver is the slice of the geo client the ride lifecycle needs.
// This interface allows for testing with mock implementations.
type GeoResolver interface {
	DistanceAndDuration(ctx context.Context, origin, destination string) (geo.DistanceDuration, error)
}

// RideDispatcher receives newly created rides for asynchronous driver
// notification. Implementations must not block and must never fail ride
// creation.
type RideDispatcher interface {
	NotifyRideCreated(rideID, pickup string)
}

// RideService owns the ride state machine:
// PENDING -> ACCEPTED -> ONGOING -> COMPLETED.
type RideService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	geo        GeoResolver
	dispatcher RideDispatcher // optional
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	geoResolver GeoResolver,
	dispatcher RideDispatcher,
) *RideService {
	return &RideService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		geo:        geoResolver,
		dispatcher: dispatcher,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	RiderID      string
	Pickup       string
	Destination  string
	VehicleClass string
}

// Create computes the fare, generates the one-time code, and persists a new
// ride in PENDING. Geo failures propagate as ErrFareUnavailable and nothing
// is persisted. Driver notification is handed off asynchronously and cannot
// fail the creation.
func (s *RideService) Create(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	riderID := strings.TrimSpace(req.RiderID)
	pickup := strings.TrimSpace(req.Pickup)
	destination := strings.TrimSpace(req.Destination)

	if riderID == "" || pickup == "" || destination == "" || req.VehicleClass == "" {
		return nil, ErrMissingFields
	}

	class, err := ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, err
	}

	est, err := s.geo.DistanceAndDuration(ctx, pickup, destination)
	if err != nil {
		return nil, ErrFareUnavailable
	}

	fare, err := QuoteFare(est, class)
	if err != nil {
		return nil, err
	}

	otp, err := generateOTP(6)
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:           uuid.New().String(),
		RiderID:      riderID,
		Pickup:       pickup,
		Destination:  destination,
		VehicleClass: class,
		Fare:         fare,
		OTP:          otp,
		Status:       domain.RideStatusPending,
		CreatedAt:    time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.NotifyRideCreated(ride.ID, ride.Pickup)
	}

	return ride, nil
}

// Confirm binds the driver to the ride and sets it ACCEPTED. There is no
// guard against a second driver confirming an already-accepted ride: the
// update is last-write-wins, matching current system behavior.
func (s *RideService) Confirm(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" || driverID == "" {
		return nil, ErrMissingFields
	}

	if err := s.rideRepo.Confirm(ctx, rideID, driverID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	ride, err := s.rideRepo.GetWithParties(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	return ride, nil
}

// Start moves an ACCEPTED ride to ONGOING after verifying the one-time
// code. The code is never regenerated.
func (s *RideService) Start(ctx context.Context, rideID, otp, driverID string) (*domain.Ride, error) {
	if rideID == "" || otp == "" {
		return nil, ErrMissingFields
	}

	ride, err := s.rideRepo.GetWithParties(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	if ride.Status != domain.RideStatusAccepted {
		return nil, ErrInvalidTransition
	}

	if ride.OTP != otp {
		return nil, ErrInvalidOTP
	}

	if err := s.rideRepo.UpdateStatus(ctx, rideID, domain.RideStatusOngoing); err != nil {
		return nil, err
	}
	ride.Status = domain.RideStatusOngoing

	return ride, nil
}

// End completes an ONGOING ride. Calling it again after a crash or client
// retry returns the already-completed ride unchanged. The transition itself
// is a conditional update so that of two concurrent completions exactly one
// wins, and the driver's completed-trip counter and earnings are credited
// exactly once, by the winner.
func (s *RideService) End(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" || driverID == "" {
		return nil, ErrMissingFields
	}

	ride, err := s.rideRepo.GetByIDForDriver(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	if ride.Status == domain.RideStatusCompleted {
		return s.hydrated(ctx, ride)
	}

	if ride.Status != domain.RideStatusOngoing {
		return nil, ErrInvalidTransition
	}

	completed, err := s.rideRepo.CompleteIfOngoing(ctx, rideID, driverID)
	if err == nil {
		if statsErr := s.driverRepo.IncrementStats(ctx, driverID, completed.Fare); statsErr != nil {
			// The ride is completed; a failed credit is logged, not rolled back.
			log.Printf("[ride] driver stats credit failed: ride=%s driver=%s: %v", rideID, driverID, statsErr)
		}
		return s.hydrated(ctx, completed)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// Lost the race: re-read and accept a completion by the other caller.
	latest, err := s.rideRepo.GetByIDForDriver(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	if latest.Status == domain.RideStatusCompleted {
		return s.hydrated(ctx, latest)
	}

	return nil, ErrCompletionFailed
}

// GetByID retrieves a ride with parties hydrated.
func (s *RideService) GetByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrMissingFields
	}

	ride, err := s.rideRepo.GetWithParties(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetAll retrieves recent rides for aggregate listings. The CANCELLED
// status can appear here even though no core transition produces it.
func (s *RideService) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	return s.rideRepo.GetAll(ctx)
}

// hydrated re-reads a ride with parties attached, falling back to the bare
// ride when hydration fails.
func (s *RideService) hydrated(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	full, err := s.rideRepo.GetWithParties(ctx, ride.ID)
	if err != nil {
		return ride, nil
	}
	return full, nil
}

// generateOTP returns a uniformly random numeric code with the given number
// of digits, from a cryptographically secure source.
func generateOTP(digits int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	high := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)

	n, err := rand.Int(rand.Reader, new(big.Int).Sub(high, low))
	if err != nil {
		return "", err
	}

	return new(big.Int).Add(n, low).String(), nil
}
