package service

import (
	"time"

	"ridedispatch/internal/domain"
)

// RideEvent is the ride view carried in real-time and broker events. It
// deliberately omits the one-time start code, which only the rider may see.
type RideEvent struct {
	ID           string              `json:"id"`
	RiderID      string              `json:"rider_id"`
	DriverID     string              `json:"driver_id,omitempty"`
	Pickup       string              `json:"pickup"`
	Destination  string              `json:"destination"`
	VehicleClass domain.VehicleClass `json:"vehicle_class"`
	Fare         int64               `json:"fare"`
	Status       domain.RideStatus   `json:"status"`
	RiderName    string              `json:"rider_name,omitempty"`
	DriverName   string              `json:"driver_name,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewRideEvent builds the event view of a ride.
func NewRideEvent(ride *domain.Ride) RideEvent {
	ev := RideEvent{
		ID:           ride.ID,
		RiderID:      ride.RiderID,
		DriverID:     ride.DriverID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: ride.VehicleClass,
		Fare:         ride.Fare,
		Status:       ride.Status,
		CreatedAt:    ride.CreatedAt,
	}
	if ride.Rider != nil {
		ev.RiderName = ride.Rider.Name
	}
	if ride.Driver != nil {
		ev.DriverName = ride.Driver.Name
	}
	return ev
}
