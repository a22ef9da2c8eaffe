package domain

import "time"

// Driver represents a driver in the system.
type Driver struct {
	ID             string
	Name           string
	Phone          string
	FCMToken       string
	CompletedTrips int64
	Earnings       int64 // cumulative fare credit, integer currency units
	CreatedAt      time.Time
}

// DriverLocation is a driver's last known position plus the handle of the
// driver's live connection, if any. It is written by the location-update
// channel and read by driver discovery; the ride lifecycle does not own it.
type DriverLocation struct {
	DriverID string
	Lat      float64
	Lng      float64
	ConnID   string // empty when the driver has no live connection
}
