package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending   RideStatus = "PENDING"
	RideStatusAccepted  RideStatus = "ACCEPTED"
	RideStatusOngoing   RideStatus = "ONGOING"
	RideStatusCompleted RideStatus = "COMPLETED"

	// RideStatusCancelled appears in aggregate listings but no lifecycle
	// transition sets it. Cancellation is handled outside this core.
	RideStatusCancelled RideStatus = "CANCELLED"
)

// VehicleClass represents the requested vehicle class for a ride.
type VehicleClass string

const (
	VehicleClassEconomy VehicleClass = "ECONOMY"
	VehicleClassCompact VehicleClass = "COMPACT"
	VehicleClassPremium VehicleClass = "PREMIUM"
)

// Ride represents a single transport engagement from pickup to destination.
//
// Fare is set once at creation and never recomputed. OTP is generated once
// at creation and immutable. DriverID is set exactly once, at confirmation.
type Ride struct {
	ID           string
	RiderID      string
	DriverID     string // empty until confirmed
	Pickup       string
	Destination  string
	VehicleClass VehicleClass
	Fare         int64 // integer currency units
	OTP          string
	Status       RideStatus

	// Payment track, independent of ride status.
	OrderID          string
	PaymentID        string
	PaymentSignature string

	CreatedAt time.Time

	// Hydrated references, populated by GetWithParties.
	Rider  *User
	Driver *Driver
}
