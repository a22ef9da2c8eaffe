package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, phone, fcm_token, completed_trips, earnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID, driver.Name, driver.Phone, nullString(driver.FCMToken),
		driver.CompletedTrips, driver.Earnings, driver.CreatedAt)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(fcm_token, ''), completed_trips, earnings, created_at
		FROM drivers WHERE id = $1
	`

	var driver domain.Driver
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.FCMToken,
		&driver.CompletedTrips,
		&driver.Earnings,
		&driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &driver, nil
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(fcm_token, ''), completed_trips, earnings, created_at
		FROM drivers ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var driver domain.Driver
		if err := rows.Scan(
			&driver.ID, &driver.Name, &driver.Phone, &driver.FCMToken,
			&driver.CompletedTrips, &driver.Earnings, &driver.CreatedAt,
		); err != nil {
			return nil, err
		}
		drivers = append(drivers, &driver)
	}
	return drivers, rows.Err()
}

// IncrementStats adds one completed trip and the fare to cumulative
// earnings in a single statement.
func (r *DriverRepository) IncrementStats(ctx context.Context, id string, fare int64) error {
	query := `UPDATE drivers SET completed_trips = completed_trips + 1, earnings = earnings + $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, fare, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// UpdateFCMToken stores the driver's push token.
func (r *DriverRepository) UpdateFCMToken(ctx context.Context, id, token string) error {
	query := `UPDATE drivers SET fcm_token = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, nullString(token), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
