package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const rideColumns = `id, rider_id, driver_id, pickup, destination, vehicle_class, fare, otp, status, order_id, payment_id, payment_signature, created_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.Pickup,
		ride.Destination,
		ride.VehicleClass,
		ride.Fare,
		ride.OTP,
		ride.Status,
		nullString(ride.OrderID),
		nullString(ride.PaymentID),
		nullString(ride.PaymentSignature),
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForRider retrieves a ride only if it belongs to the rider.
func (r *RideRepository) GetByIDForRider(ctx context.Context, id, riderID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 AND rider_id = $2`
	return scanRide(r.q.QueryRowContext(ctx, query, id, riderID))
}

// GetByIDForDriver retrieves a ride only if it is bound to the driver.
func (r *RideRepository) GetByIDForDriver(ctx context.Context, id, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 AND driver_id = $2`
	return scanRide(r.q.QueryRowContext(ctx, query, id, driverID))
}

// GetWithParties retrieves a ride with rider and driver details hydrated.
func (r *RideRepository) GetWithParties(ctx context.Context, id string) (*domain.Ride, error) {
	query := `
		SELECT r.id, r.rider_id, r.driver_id, r.pickup, r.destination, r.vehicle_class, r.fare, r.otp, r.status, r.order_id, r.payment_id, r.payment_signature, r.created_at,
		       u.name, u.phone, COALESCE(u.fcm_token, ''),
		       d.name, d.phone, COALESCE(d.fcm_token, ''), d.completed_trips, d.earnings
		FROM rides r
		JOIN users u ON u.id = r.rider_id
		LEFT JOIN drivers d ON d.id = r.driver_id
		WHERE r.id = $1
	`

	var (
		ride             domain.Ride
		driverID         sql.NullString
		orderID          sql.NullString
		paymentID        sql.NullString
		paymentSignature sql.NullString
		riderName        string
		riderPhone       string
		riderFCM         string
		driverName       sql.NullString
		driverPhone      sql.NullString
		driverFCM        sql.NullString
		completedTrips   sql.NullInt64
		earnings         sql.NullInt64
	)

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Pickup,
		&ride.Destination,
		&ride.VehicleClass,
		&ride.Fare,
		&ride.OTP,
		&ride.Status,
		&orderID,
		&paymentID,
		&paymentSignature,
		&ride.CreatedAt,
		&riderName,
		&riderPhone,
		&riderFCM,
		&driverName,
		&driverPhone,
		&driverFCM,
		&completedTrips,
		&earnings,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.OrderID = orderID.String
	ride.PaymentID = paymentID.String
	ride.PaymentSignature = paymentSignature.String

	ride.Rider = &domain.User{
		ID:       ride.RiderID,
		Name:     riderName,
		Phone:    riderPhone,
		FCMToken: riderFCM,
	}

	if driverID.Valid {
		ride.Driver = &domain.Driver{
			ID:             driverID.String,
			Name:           driverName.String,
			Phone:          driverPhone.String,
			FCMToken:       driverFCM.String,
			CompletedTrips: completedTrips.Int64,
			Earnings:       earnings.Int64,
		}
	}

	return &ride, nil
}

// GetAll retrieves recent rides for aggregate listings.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRideRow(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Confirm sets the ride ACCEPTED and binds the driver (last-write-wins).
func (r *RideRepository) Confirm(ctx context.Context, id, driverID string) error {
	query := `UPDATE rides SET status = $1, driver_id = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, domain.RideStatusAccepted, driverID, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// UpdateStatus sets the ride status unconditionally.
func (r *RideRepository) UpdateStatus(ctx context.Context, id string, status domain.RideStatus) error {
	query := `UPDATE rides SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// CompleteIfOngoing atomically transitions the ride to COMPLETED, only if
// it is still ONGOING and bound to the driver. The conditional WHERE clause
// is what makes concurrent or retried completions credit the driver at most
// once.
func (r *RideRepository) CompleteIfOngoing(ctx context.Context, id, driverID string) (*domain.Ride, error) {
	query := `
		UPDATE rides SET status = $1
		WHERE id = $2 AND driver_id = $3 AND status = $4
		RETURNING ` + rideColumns

	return scanRide(r.q.QueryRowContext(ctx, query,
		domain.RideStatusCompleted, id, driverID, domain.RideStatusOngoing))
}

// SetPaymentOrder stores the payment-provider order id on the ride.
func (r *RideRepository) SetPaymentOrder(ctx context.Context, id, orderID string) error {
	query := `UPDATE rides SET order_id = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, orderID, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// SetPaymentVerified stores the verified payment identifiers on the ride.
func (r *RideRepository) SetPaymentVerified(ctx context.Context, id, orderID, paymentID, signature string) error {
	query := `UPDATE rides SET order_id = $1, payment_id = $2, payment_signature = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query, orderID, paymentID, signature, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row *sql.Row) (*domain.Ride, error) {
	ride, err := scanRideRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

func scanRideRow(row rowScanner) (*domain.Ride, error) {
	var (
		ride             domain.Ride
		driverID         sql.NullString
		orderID          sql.NullString
		paymentID        sql.NullString
		paymentSignature sql.NullString
	)

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Pickup,
		&ride.Destination,
		&ride.VehicleClass,
		&ride.Fare,
		&ride.OTP,
		&ride.Status,
		&orderID,
		&paymentID,
		&paymentSignature,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.OrderID = orderID.String
	ride.PaymentID = paymentID.String
	ride.PaymentSignature = paymentSignature.String

	return &ride, nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
