package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

func rideRows(ride *domain.Ride) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "rider_id", "driver_id", "pickup", "destination", "vehicle_class",
		"fare", "otp", "status", "order_id", "payment_id", "payment_signature", "created_at",
	}).AddRow(
		ride.ID, ride.RiderID, ride.DriverID, ride.Pickup, ride.Destination, ride.VehicleClass,
		ride.Fare, ride.OTP, ride.Status, ride.OrderID, ride.PaymentID, ride.PaymentSignature, ride.CreatedAt,
	)
}

func sampleRide() *domain.Ride {
	return &domain.Ride{
		ID:           "ride-1",
		RiderID:      "rider-1",
		DriverID:     "driver-1",
		Pickup:       "Central Station",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCompact,
		Fare:         104,
		OTP:          "123456",
		Status:       domain.RideStatusOngoing,
		CreatedAt:    time.Now(),
	}
}

func TestCompleteIfOngoingWinsRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ride := sampleRide()
	completed := *ride
	completed.Status = domain.RideStatusCompleted

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE rides SET status = $1`)).
		WithArgs(domain.RideStatusCompleted, "ride-1", "driver-1", domain.RideStatusOngoing).
		WillReturnRows(rideRows(&completed))

	repo := NewRideRepository(db)
	got, err := repo.CompleteIfOngoing(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("CompleteIfOngoing returned error: %v", err)
	}
	if got.Status != domain.RideStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCompleteIfOngoingLosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// No row matched the conditional update.
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE rides SET status = $1`)).
		WithArgs(domain.RideStatusCompleted, "ride-1", "driver-1", domain.RideStatusOngoing).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewRideRepository(db)
	if _, err := repo.CompleteIfOngoing(context.Background(), "ride-1", "driver-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound when the precondition is lost, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirmNoSuchRide(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rides SET status = $1, driver_id = $2 WHERE id = $3`)).
		WithArgs(domain.RideStatusAccepted, "driver-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRideRepository(db)
	if err := repo.Confirm(context.Background(), "missing", "driver-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetByIDForDriverScopesOwnership(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ride := sampleRide()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + rideColumns + ` FROM rides WHERE id = $1 AND driver_id = $2`)).
		WithArgs("ride-1", "driver-1").
		WillReturnRows(rideRows(ride))

	repo := NewRideRepository(db)
	got, err := repo.GetByIDForDriver(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("GetByIDForDriver returned error: %v", err)
	}
	if got.ID != "ride-1" || got.OTP != "123456" {
		t.Errorf("unexpected ride %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIncrementStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE drivers SET completed_trips = completed_trips + 1, earnings = earnings + $1 WHERE id = $2`)).
		WithArgs(int64(104), "driver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDriverRepository(db)
	if err := repo.IncrementStats(context.Background(), "driver-1", 104); err != nil {
		t.Fatalf("IncrementStats returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
