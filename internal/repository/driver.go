package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// IncrementStats adds one completed trip and the given fare to the
	// driver's cumulative earnings. Called exactly once per completed ride,
	// by the winner of the completion compare-and-set.
	IncrementStats(ctx context.Context, id string, fare int64) error

	// UpdateFCMToken stores the driver's push token.
	UpdateFCMToken(ctx context.Context, id, token string) error
}
