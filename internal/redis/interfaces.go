package redis

import (
	"context"

	"ridedispatch/internal/domain"
)

// LocationStoreInterface defines the driver location/connection operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	SetConnection(ctx context.Context, driverID, connID string) error
	ClearConnection(ctx context.Context, driverID string) error
	All(ctx context.Context) ([]domain.DriverLocation, error)
	ConnectedHandles(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var _ LocationStoreInterface = (*LocationStore)(nil)
