package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID. The OTP is included: rides are only
	// handed to callers that already passed the ownership checks below.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForRider retrieves a ride only if it belongs to the rider.
	GetByIDForRider(ctx context.Context, id, riderID string) (*domain.Ride, error)

	// GetByIDForDriver retrieves a ride only if it is bound to the driver.
	GetByIDForDriver(ctx context.Context, id, driverID string) (*domain.Ride, error)

	// GetWithParties retrieves a ride with rider and driver hydrated.
	GetWithParties(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves recent rides for aggregate listings.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// Confirm sets the ride ACCEPTED and binds the driver. Deliberately
	// last-write-wins: a second confirmation overwrites the first, matching
	// current system behavior.
	Confirm(ctx context.Context, id, driverID string) error

	// UpdateStatus sets the ride status unconditionally.
	UpdateStatus(ctx context.Context, id string, status domain.RideStatus) error

	// CompleteIfOngoing atomically moves the ride to COMPLETED, conditioned
	// on it still being ONGOING and bound to the driver at update time.
	// Returns ErrNotFound when the precondition no longer holds.
	CompleteIfOngoing(ctx context.Context, id, driverID string) (*domain.Ride, error)

	// SetPaymentOrder stores the payment-provider order id on the ride.
	SetPaymentOrder(ctx context.Context, id, orderID string) error

	// SetPaymentVerified stores the verified payment identifiers on the ride.
	SetPaymentVerified(ctx context.Context, id, orderID, paymentID, signature string) error
}
